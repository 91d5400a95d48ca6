// ABOUTME: This file implements configuration loading with environment variable support
// ABOUTME: Provides grouped structs, defaults, and validation for the ingestion service
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full process configuration, grouped by concern.
type Config struct {
	Server    ServerConfig
	Archive   ArchiveConfig
	Metadata  MetadataConfig
	Store     StoreConfig
	Index     IndexConfig
	Admin     AdminConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the admin HTTP server.
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" default:"9200"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// ArchiveConfig points at the directory-listing archive the crawler walks.
type ArchiveConfig struct {
	BaseURL string `env:"ARCHIVE_BASE_URL" default:"https://archive.example/roms/"`
}

// MetadataConfig carries the credentials and hosts for the external
// metadata provider (§6). Absence of credentials disables enrichment but
// not crawling, per spec.md §6.
type MetadataConfig struct {
	ClientID     string `env:"IGDB_CLIENT_ID"`
	ClientSecret string `env:"IGDB_CLIENT_SECRET"`
	APIBaseURL   string `env:"IGDB_API_BASE_URL" default:"https://api.igdb.com"`
}

// Enabled reports whether enrichment credentials were supplied.
func (m MetadataConfig) Enabled() bool {
	return m.ClientID != "" && m.ClientSecret != ""
}

// StoreConfig is the Postgres connection the catalog store adapter uses,
// following the teacher's per-field DB_* naming rather than a single DSN
// environment variable.
type StoreConfig struct {
	Host     string `env:"DB_HOST" default:"localhost"`
	Port     int    `env:"DB_PORT" default:"5432"`
	User     string `env:"CATALOG_DB_USER" default:"romarchive"`
	Password string `env:"CATALOG_DB_PASSWORD"`
	Name     string `env:"DB_NAME" default:"romarchive"`
	SSLMode  string `env:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" default:"30"`
	MinConns int32  `env:"DB_MIN_CONNS" default:"2"`
}

// DSN renders the libpq connection string pgxpool.ParseConfig expects.
func (s StoreConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// IndexConfig is the Meilisearch host the search index adapter targets.
type IndexConfig struct {
	Host   string `env:"MEILI_HOST" default:"http://localhost:7700"`
	APIKey string `env:"MEILI_API_KEY"`
}

// AdminConfig guards the administrative HTTP surface (§6) with a shared key.
type AdminConfig struct {
	SharedKey string `env:"ADMIN_SHARED_KEY"`
}

// SchedulerConfig is where the scheduler's persisted cron configuration
// document lives on local disk.
type SchedulerConfig struct {
	ConfigPath string `env:"SCHEDULE_CONFIG_PATH" default:"./schedule.json"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Port    int    `env:"METRICS_PORT" default:"9201"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Load builds the configuration from defaults overridden by environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9200,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Archive: ArchiveConfig{
			BaseURL: "https://archive.example/roms/",
		},
		Metadata: MetadataConfig{
			APIBaseURL: "https://api.igdb.com",
		},
		Store: StoreConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "romarchive",
			Name:     "romarchive",
			SSLMode:  "disable",
			MaxConns: 30,
			MinConns: 2,
		},
		Index: IndexConfig{
			Host: "http://localhost:7700",
		},
		Scheduler: SchedulerConfig{
			ConfigPath: "./schedule.json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9201,
			Path:    "/metrics",
		},
	}
}

func loadFromEnv(cfg *Config) error {
	var err error

	if cfg.Server.Port, err = parseIntEnv("SERVER_PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Server.ShutdownTimeout, err = parseDurationEnv("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.Server.ReadTimeout, err = parseDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = parseDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout); err != nil {
		return err
	}

	cfg.Archive.BaseURL = stringEnv("ARCHIVE_BASE_URL", cfg.Archive.BaseURL)

	cfg.Metadata.ClientID = stringEnv("IGDB_CLIENT_ID", cfg.Metadata.ClientID)
	cfg.Metadata.ClientSecret = stringEnv("IGDB_CLIENT_SECRET", cfg.Metadata.ClientSecret)
	cfg.Metadata.APIBaseURL = stringEnv("IGDB_API_BASE_URL", cfg.Metadata.APIBaseURL)

	cfg.Store.Host = stringEnv("DB_HOST", cfg.Store.Host)
	if cfg.Store.Port, err = parseIntEnv("DB_PORT", cfg.Store.Port); err != nil {
		return err
	}
	cfg.Store.User = stringEnv("CATALOG_DB_USER", cfg.Store.User)
	cfg.Store.Password = stringEnv("CATALOG_DB_PASSWORD", cfg.Store.Password)
	cfg.Store.Name = stringEnv("DB_NAME", cfg.Store.Name)
	cfg.Store.SSLMode = stringEnv("DB_SSLMODE", cfg.Store.SSLMode)
	if v, err := parseIntEnv("DB_MAX_CONNS", int(cfg.Store.MaxConns)); err != nil {
		return err
	} else {
		cfg.Store.MaxConns = int32(v)
	}
	if v, err := parseIntEnv("DB_MIN_CONNS", int(cfg.Store.MinConns)); err != nil {
		return err
	} else {
		cfg.Store.MinConns = int32(v)
	}

	cfg.Index.Host = stringEnv("MEILI_HOST", cfg.Index.Host)
	cfg.Index.APIKey = stringEnv("MEILI_API_KEY", cfg.Index.APIKey)

	cfg.Admin.SharedKey = stringEnv("ADMIN_SHARED_KEY", cfg.Admin.SharedKey)

	cfg.Scheduler.ConfigPath = stringEnv("SCHEDULE_CONFIG_PATH", cfg.Scheduler.ConfigPath)

	if cfg.Metrics.Enabled, err = parseBoolEnv("METRICS_ENABLED", cfg.Metrics.Enabled); err != nil {
		return err
	}
	if cfg.Metrics.Port, err = parseIntEnv("METRICS_PORT", cfg.Metrics.Port); err != nil {
		return err
	}
	cfg.Metrics.Path = stringEnv("METRICS_PATH", cfg.Metrics.Path)

	return nil
}

// validate checks invariants that defaults and env parsing cannot catch
// on their own. Configuration errors are always surfaced synchronously
// (§7), never raised asynchronously after startup.
func validate(cfg *Config) error {
	if cfg.Archive.BaseURL == "" {
		return fmt.Errorf("ARCHIVE_BASE_URL must not be empty")
	}
	if cfg.Store.MaxConns < cfg.Store.MinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", cfg.Store.MaxConns, cfg.Store.MinConns)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", cfg.Server.Port)
	}
	return nil
}

func stringEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
