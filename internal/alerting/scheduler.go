package alerting

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// SchedulerConfig sets the recurring intervals. Zero values fall back to the
// defaults below.
type SchedulerConfig struct {
	// ProcessInterval is how often the full processing batch runs
	// (delivery, rule evaluation, expiry sweep).
	ProcessInterval time.Duration

	// AutoGenInterval is how often preference schedules are checked.
	AutoGenInterval time.Duration

	// CleanupSpec is a cron expression for the retention sweep.
	CleanupSpec string
}

const (
	defaultProcessInterval = 5 * time.Minute
	defaultAutoGenInterval = 15 * time.Minute
	defaultCleanupSpec     = "30 3 * * *"
)

// Scheduler drives the engine and auto-generation on recurring schedules.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	auto   *AutoService
	alerts repository.AlertRepository
	log    *zap.Logger
	cfg    SchedulerConfig

	cancel context.CancelFunc
}

// NewScheduler wires the recurring jobs. Call Start to begin and Stop to shut
// down; Stop waits for any in-flight job to finish.
func NewScheduler(engine *Engine, auto *AutoService, alerts repository.AlertRepository, log *zap.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.ProcessInterval <= 0 {
		cfg.ProcessInterval = defaultProcessInterval
	}
	if cfg.AutoGenInterval <= 0 {
		cfg.AutoGenInterval = defaultAutoGenInterval
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = defaultCleanupSpec
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		auto:   auto,
		alerts: alerts,
		log:    log,
		cfg:    cfg,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if _, err := s.cron.AddFunc("@every "+s.cfg.ProcessInterval.String(), func() {
		if _, err := s.engine.ProcessAllAlerts(ctx); err != nil {
			s.log.Error("scheduled alert processing failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@every "+s.cfg.AutoGenInterval.String(), func() {
		if _, err := s.auto.RunAutoGeneration(ctx); err != nil {
			s.log.Error("scheduled auto-generation failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() {
		CleanupOldAlerts(ctx, s.alerts, time.Now(), s.log)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("alert scheduler started",
		zap.Duration("process_interval", s.cfg.ProcessInterval),
		zap.Duration("autogen_interval", s.cfg.AutoGenInterval),
		zap.String("cleanup_spec", s.cfg.CleanupSpec))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.log.Info("alert scheduler stopped")
}
