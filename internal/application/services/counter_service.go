package services

import (
	"context"
	"fmt"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/ports"
)

// CounterService exposes the per-day counter
type CounterService struct {
	repo ports.CounterRepository
}

// NewCounterService creates a counter service
func NewCounterService(repo ports.CounterRepository) *CounterService {
	return &CounterService{repo: repo}
}

// Get returns the counter for date, zero when never incremented
func (s *CounterService) Get(ctx context.Context, date string) (*entities.DailyCounter, error) {
	if _, err := entities.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %q", err, date)
	}
	return s.repo.Get(ctx, date)
}

// Increment adds delta (1 when zero) to the counter for date
func (s *CounterService) Increment(ctx context.Context, date string, delta int) (*entities.DailyCounter, error) {
	if _, err := entities.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %q", err, date)
	}
	if delta == 0 {
		delta = 1
	}
	return s.repo.Increment(ctx, date, delta)
}
