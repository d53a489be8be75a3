package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stashsmart/internal/logger"
)

// Purger removes activity entries older than a retention window.
type Purger interface {
	Purge(ctx context.Context, olderThanDays int) (int64, error)
}

// RetentionSweeper periodically purges expired activity log entries.
type RetentionSweeper struct {
	purger        Purger
	retentionDays int
	interval      time.Duration
	log           *zap.SugaredLogger
}

// NewRetentionSweeper creates a sweeper. A non-positive interval or retention
// disables it.
func NewRetentionSweeper(purger Purger, retentionDays int, interval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		purger:        purger,
		retentionDays: retentionDays,
		interval:      interval,
		log:           logger.Named("retention"),
	}
}

// Enabled reports whether Run will do any work.
func (s *RetentionSweeper) Enabled() bool {
	return s.interval > 0 && s.retentionDays > 0
}

// Run sweeps once on start and then on every tick until ctx is cancelled.
// Failed sweeps are logged and retried on the next tick.
func (s *RetentionSweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Infow("activity retention sweeper disabled",
			"retention_days", s.retentionDays, "interval", s.interval)
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge and returns the number of rows removed.
func (s *RetentionSweeper) SweepOnce(ctx context.Context) int64 {
	removed, err := s.purger.Purge(ctx, s.retentionDays)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorw("activity purge failed", "error", err)
		}
		return 0
	}
	if removed > 0 {
		s.log.Infow("purged expired activity", "removed", removed, "retention_days", s.retentionDays)
	}
	return removed
}
