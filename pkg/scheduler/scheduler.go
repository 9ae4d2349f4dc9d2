// Package scheduler drives periodic import runs.
package scheduler

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
)

// Scheduler triggers an import on a fixed interval until stopped.
type Scheduler struct {
	run      func(ctx context.Context) error
	interval time.Duration
	logger   ectologger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a scheduler around the given run function.
func New(run func(ctx context.Context) error, interval time.Duration, logger ectologger.Logger) *Scheduler {
	return &Scheduler{
		run:      run,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the ticker loop. Runs do not overlap; a run that outlasts the
// interval delays the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		defer close(s.done)

		s.logger.Infof("Import scheduler started with interval %s", s.interval)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Import scheduler stopped")
				return
			case <-ticker.C:
				if err := s.run(ctx); err != nil {
					s.logger.WithError(err).Error("Scheduled import run failed")
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
