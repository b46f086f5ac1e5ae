package backup

import (
	"context"
	"time"

	"github.com/memoria/core/internal/infrastructure/logger"
)

// Scheduler runs a backup shortly after start and then on a fixed interval
type Scheduler struct {
	service      *Service
	initialDelay time.Duration
	interval     time.Duration
	logger       *logger.Logger
}

// NewScheduler creates a backup scheduler
func NewScheduler(service *Service, initialDelay, interval time.Duration, appLogger *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		service:      service,
		initialDelay: initialDelay,
		interval:     interval,
		logger:       appLogger.WithComponent("backup_scheduler"),
	}
}

// Run blocks until ctx is cancelled. A failed cycle is logged and the next one
// runs on schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.service.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Errorw("Backup cycle failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Infow("Backup scheduler stopped")
			return nil
		}
	}
}
