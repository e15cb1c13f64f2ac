// Package jobs runs scheduled backups: a single worker drains a small queue
// so ticks that arrive while a run is in flight coalesce instead of stacking.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Runner is the backup surface the scheduler drives.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

type Service struct {
	runner   Runner
	interval time.Duration
	queue    chan struct{}
	logger   zerolog.Logger
}

// New builds the scheduler. interval 0 disables periodic runs; Enqueue still
// works for manual triggering.
func New(runner Runner, interval time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		runner:   runner,
		interval: interval,
		queue:    make(chan struct{}, 1),
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
}

// Start launches the worker and, when an interval is configured, the ticker.
// Both stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.interval > 0 {
		go s.schedule(ctx)
		s.logger.Info().Dur("interval", s.interval).Msg("scheduled backups enabled")
	}
}

// Enqueue requests a backup run. Reports false when one is already pending.
func (s *Service) Enqueue() bool {
	select {
	case s.queue <- struct{}{}:
		return true
	default:
		s.logger.Debug().Msg("backup already pending, tick coalesced")
		return false
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.queue:
			if err := s.runner.Run(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled backup failed")
			}
		}
	}
}

func (s *Service) schedule(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue()
		}
	}
}
