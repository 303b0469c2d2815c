// Package cleanup runs the periodic sweep of expired refresh tokens.
package cleanup

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/robfig/cron/v3"
)

// Sweeper removes expired refresh tokens. Failures are handled by the implementation.
type Sweeper interface {
	CleanupExpiredTokens(ctx context.Context)
}

// Scheduler triggers a Sweeper on a cron schedule and once at Run.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  logging.Logger
	ctx     context.Context
}

// NewScheduler parses schedule (standard five-field cron or a descriptor such as
// "@hourly") and registers the sweep.
func NewScheduler(schedule string, sweeper Sweeper, logger logging.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		logger:  logger.With("module", "CleanupScheduler"),
		ctx:     context.Background(),
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) sweep() {
	s.logger.Debug(s.ctx, "running expired token cleanup")
	s.sweeper.CleanupExpiredTokens(s.ctx)
}

// Run performs an initial sweep, starts the cron loop and blocks until ctx
// is done. It then waits for a running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.sweep()

	s.cron.Start()
	s.logger.Info(ctx, "cleanup scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info(context.WithoutCancel(ctx), "cleanup scheduler stopped")
}
