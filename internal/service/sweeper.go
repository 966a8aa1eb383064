package service

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// Sweeper periodically reconciles the jobs of one principal so dashboards stay warm between reads.
type Sweeper struct {
	reconciler *Reconciler
	principal  string
	interval   time.Duration
}

func NewSweeper(reconciler *Reconciler, principal string, interval time.Duration) *Sweeper {
	return &Sweeper{
		reconciler: reconciler,
		principal:  principal,
		interval:   interval,
	}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	logger := zap.S().Named("sweeper")
	if s.interval <= 0 || s.principal == "" {
		logger.Info("periodic reconciliation disabled")
		return
	}

	ticker := jitterbug.New(s.interval, &jitterbug.Norm{Stdev: s.interval / 10, Mean: 0})
	defer ticker.Stop()

	logger.Infow("periodic reconciliation started", "principal", s.principal, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic reconciliation stopped")
			return
		case <-ticker.C:
			if _, err := s.reconciler.Reconcile(ctx, s.principal); err != nil {
				logger.Warnw("periodic reconciliation failed", "error", err)
			}
		}
	}
}
