// ABOUTME: This file implements the pipeline scheduler (C8): a cron-driven
// ABOUTME: trigger for the orchestrator, with its configuration persisted to disk
package scheduler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"romarchive/domain"

	"github.com/robfig/cron/v3"
)

// Runner is the subset of the orchestrator the scheduler depends on to
// fire a run. A "pipeline already running" error from a concurrent
// manual start is expected and swallowed, not treated as a job failure.
type Runner interface {
	Start(mode domain.Mode) error
}

// Scheduler wraps a cron.Cron instance, registering at most one entry at
// a time: the currently configured schedule (§4.9). Re-applying a config
// atomically replaces whatever entry was previously registered.
type Scheduler struct {
	runner     Runner
	configPath string
	logger     *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	current domain.ScheduleConfig
	entryID cron.EntryID
	started bool
}

// New constructs a Scheduler. It does not start the cron engine or load
// any persisted configuration; call Load to do both. The cron engine
// runs against a UTC clock (§4.9, §9): DST has no bearing on firing
// times regardless of the host's local timezone.
func New(runner Runner, configPath string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		configPath: configPath,
		logger:     logger,
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}
}

// Load reads the persisted schedule configuration, if any, and applies
// it. A missing file is not an error: the scheduler simply starts
// disabled. The cron engine is started unconditionally so a later
// ApplyConfig can register an entry without a separate start step.
func (s *Scheduler) Load() error {
	s.cron.Start()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	data, err := os.ReadFile(s.configPath)
	if os.IsNotExist(err) {
		s.logger.Info("no persisted schedule configuration found, starting disabled", "path", s.configPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schedule config: %w", err)
	}

	var cfg domain.ScheduleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse schedule config: %w", err)
	}

	return s.apply(cfg, false)
}

// Current returns the active schedule configuration.
func (s *Scheduler) Current() domain.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ApplyConfig validates the cron expression, persists the configuration,
// and replaces any previously registered entry (§4.9). Validation happens
// before anything is persisted or registered, so a bad expression leaves
// the prior schedule untouched.
func (s *Scheduler) ApplyConfig(cfg domain.ScheduleConfig) error {
	if cfg.Mode != domain.ModeIncremental && cfg.Mode != domain.ModeClean {
		return domain.ErrInvalidMode
	}
	if cfg.Enabled {
		if _, err := cron.ParseStandard(cfg.Expression); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidCron, err)
		}
	}

	return s.apply(cfg, true)
}

func (s *Scheduler) apply(cfg domain.ScheduleConfig, persist bool) error {
	if persist {
		if err := s.persist(cfg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}

	s.current = cfg

	if !cfg.Enabled {
		s.logger.Info("schedule disabled")
		return nil
	}

	mode := cfg.Mode
	entryID, err := s.cron.AddFunc(cfg.Expression, func() { s.fire(mode) })
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCron, err)
	}
	s.entryID = entryID

	s.logger.Info("schedule registered", "expression", cfg.Expression, "mode", mode)
	return nil
}

func (s *Scheduler) fire(mode domain.Mode) {
	s.logger.Info("scheduled run firing", "mode", mode)
	if err := s.runner.Start(mode); err != nil {
		if err == domain.ErrAlreadyRunning {
			s.logger.Warn("scheduled run skipped, a run is already in progress", "mode", mode)
			return
		}
		s.logger.Error("scheduled run failed to start", "mode", mode, "error", err)
	}
}

func (s *Scheduler) persist(cfg domain.ScheduleConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schedule config: %w", err)
	}
	if err := os.WriteFile(s.configPath, data, 0o644); err != nil {
		return fmt.Errorf("write schedule config: %w", err)
	}
	return nil
}

// Stop halts the cron engine, waiting for any in-progress job invocation
// to return. It does not cancel a pipeline run already started by that
// invocation; use the orchestrator's own Stop for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	<-s.cron.Stop().Done()
}
