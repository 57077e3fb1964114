package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Mode selects how long the worker sleeps between cycles.
type Mode string

const (
	// ModeHourly sleeps until the next hour boundary.
	ModeHourly Mode = "hourly"
	// ModeEveryThirtySeconds is a development cadence.
	ModeEveryThirtySeconds Mode = "every-thirty-seconds"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeHourly, ModeEveryThirtySeconds:
		return m, nil
	}
	return "", fmt.Errorf("unknown sleep mode %q: expected %q or %q", s, ModeHourly, ModeEveryThirtySeconds)
}

// Scheduler computes and waits out the pause between two sync cycles.
type Scheduler struct {
	mode  Mode
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithTimer replaces time.After, mostly for tests.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.after = after
	}
}

func New(mode Mode, opts ...Option) (*Scheduler, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	s := &Scheduler{
		mode:  mode,
		now:   time.Now,
		after: time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NextDelay returns how long to sleep from now until the next cycle.
func (s *Scheduler) NextDelay() time.Duration {
	if s.mode == ModeEveryThirtySeconds {
		return 30 * time.Second
	}
	now := s.now()
	return types.FromTime(now).DurationUntilNextHour() - time.Duration(now.Nanosecond())
}

// Wait blocks until the next cycle is due. It returns ctx.Err() as soon as ctx
// is cancelled.
func (s *Scheduler) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.after(s.NextDelay()):
		return nil
	}
}
