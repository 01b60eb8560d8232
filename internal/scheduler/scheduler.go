// Package scheduler triggers evaluation cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/weather-alert-service/internal/observability"
	"github.com/couchcryptid/weather-alert-service/internal/pipeline"
)

// CycleRunner runs one evaluation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (pipeline.CycleReport, error)
}

// Scheduler owns the cron instance. Overlapping runs are already refused by
// the pipeline itself, so jobs fire without extra locking here.
type Scheduler struct {
	cron    *cron.Cron
	runner  CycleRunner
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New validates the cron spec and registers the cycle job. The spec uses the
// standard five-field form, e.g. "0 */12 * * *" for every twelve hours.
func New(spec string, runner CycleRunner, logger *slog.Logger, metrics *observability.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		logger:  logger,
		metrics: metrics,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing jobs. It returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.metrics.SchedulerRunning.Set(1)
	s.logger.Info("scheduler started")
}

// Stop prevents new jobs from firing and waits for a running job to finish,
// or for the context to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	s.metrics.SchedulerRunning.Set(0)

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	if _, err := s.runner.RunCycle(context.Background()); err != nil {
		s.logger.Error("scheduled cycle failed", "error", err)
	}
}
