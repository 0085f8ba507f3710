package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
)

// DefaultCron fires at 07:00 every Monday
const DefaultCron = "0 7 * * 1"

const retryDelay = 30 * time.Second

// RunFunc is invoked on every tick
type RunFunc func(ctx context.Context) error

// Scheduler calls a RunFunc on each tick of a cron expression. Runs are
// synchronous, so a slow run delays the next tick instead of overlapping.
type Scheduler struct {
	expr   string
	loc    *time.Location
	run    RunFunc
	logger *slog.Logger

	// RunOnStart fires one run before waiting for the first tick
	RunOnStart bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(expr string, loc *time.Location, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	if expr == "" {
		expr = DefaultCron
	}
	if !gronx.IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression: %q", expr)
	}
	if run == nil {
		return nil, fmt.Errorf("scheduler requires a run function")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		expr:   expr,
		loc:    loc,
		run:    run,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}, nil
}

// Next returns the first tick strictly after t, in the scheduler's location
func (s *Scheduler) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, t.In(s.loc), false)
}

// Start blocks until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler_started", "cron", s.expr, "timezone", s.loc.String())

	if s.RunOnStart {
		s.invoke(ctx)
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler_stopping")
			return nil
		}

		now := s.now()
		next, err := s.Next(now)
		if err != nil {
			s.logger.Error("scheduler_nexttick_failed", "cron", s.expr, "error", err)
			if !s.wait(ctx, retryDelay) {
				return nil
			}
			continue
		}

		s.logger.Info("scheduler_next_run", "at", next.Format(time.RFC1123), "in", humanize.RelTime(now, next, "from now", "ago"))
		if !s.wait(ctx, next.Sub(now)) {
			return nil
		}
		s.invoke(ctx)
	}
}

func (s *Scheduler) invoke(ctx context.Context) {
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled_run_failed", "error", err)
	}
}

// wait reports false once ctx is done
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	select {
	case <-s.after(d):
		return true
	case <-ctx.Done():
		s.logger.Info("scheduler_stopping")
		return false
	}
}
