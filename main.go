// ABOUTME: This file wires configuration, stores, and the HTTP surface into a
// ABOUTME: running ingestion service, following the teacher's main.go bring-up shape
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"romarchive/bootstrap"
	"romarchive/config"
	"romarchive/handler"
	"romarchive/logger"
	"romarchive/metadata"
	"romarchive/metrics"
	"romarchive/orchestrator"
	"romarchive/scheduler"
	"romarchive/searchindex"
	"romarchive/store"
	"romarchive/telemetry"
)

func main() {
	log := logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := telemetry.ConfigFromEnv()
	otelShutdown, err := telemetry.InitProvider(ctx, otelCfg)
	if err != nil {
		log.Error("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down OpenTelemetry", "error", err)
		}
	}()

	pool, err := store.Connect(ctx, cfg.Store.DSN(), cfg.Store.MaxConns, cfg.Store.MinConns, log)
	if err != nil {
		log.Error("failed to connect to catalog store", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	catalogStore := store.New(pool, log)
	searchIndex := searchindex.New(cfg.Index.Host, cfg.Index.APIKey, log)

	var metadataClient orchestrator.MetadataClient
	if cfg.Metadata.Enabled() {
		metadataClient = metadata.New(cfg.Metadata.ClientID, cfg.Metadata.ClientSecret, cfg.Metadata.APIBaseURL, log)
	} else {
		log.Warn("metadata provider credentials not configured, runs will be scrape-only")
		metadataClient = metadata.Disabled{}
	}

	orch := orchestrator.New(cfg.Archive.BaseURL, catalogStore, searchIndex, metadataClient, log)

	sched := scheduler.New(orch, cfg.Scheduler.ConfigPath, log)
	if err := sched.Load(); err != nil {
		log.Error("failed to load scheduler configuration", "error", err)
	}
	defer sched.Stop()

	admin := handler.NewAdmin(orch, sched, catalogStore, searchIndex)
	e := bootstrap.NewHTTPServer(admin, cfg.Admin.SharedKey, otelCfg.Enabled, otelCfg.ServiceName, log)
	bootstrap.StartHTTPServer(e, cfg.Server.Port, log)

	if cfg.Metrics.Enabled {
		bootstrap.StartMetricsServer(metrics.Handler(), cfg.Metrics.Port, cfg.Metrics.Path, log)
	}

	log.Info("romarchive ingestion service started", "admin_port", cfg.Server.Port)

	<-ctx.Done()
	log.Info("shutdown signal received")
	bootstrap.Shutdown(context.Background(), e, cfg.Server.ShutdownTimeout, log)
}
