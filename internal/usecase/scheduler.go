package usecase

import (
	"context"
	"log/slog"
	"time"

	"OsintGraph/internal/ports"
)

// Scheduler wires the ticker-like driver with the ingestion pipeline for
// recurring runs.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion passes.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		stats, err := s.pipeline.Run(ctx, nil)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled run failed", "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled run finished",
				"trigger", trigger.Format(time.RFC3339),
				"total", stats.TotalProcessed,
				"ai", stats.AISuccess,
				"fallback", stats.FallbackSummary,
				"skipped", stats.SkippedDuplicate)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
