package importer

import (
	"context"
	"time"

	"github.com/memoria/core/internal/infrastructure/logger"
)

// Runner performs one import cycle
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// Scheduler reruns the pipeline on a fixed interval
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *logger.Logger
}

// NewScheduler creates a scheduler. The initial run is the caller's job so it
// can finish before anything else touches the store.
func NewScheduler(runner Runner, interval time.Duration, appLogger *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{runner: runner, interval: interval, logger: appLogger.WithComponent("import_scheduler")}
}

// Run blocks until ctx is cancelled, running an import every interval
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infow("Import scheduler started", "interval", s.interval.String())

	for {
		select {
		case <-ticker.C:
			if _, err := s.runner.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Errorw("Import run failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.Infow("Import scheduler stopped")
			return nil
		}
	}
}
