package pipeline

import (
	"context"
	"time"
)

// Pacer waits between two consecutive sends.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SleepPacer waits a fixed interval. A non-positive interval does not wait.
type SleepPacer struct {
	Interval time.Duration
}

func (p SleepPacer) Wait(ctx context.Context) error {
	if p.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NopPacer never waits.
type NopPacer struct{}

func (NopPacer) Wait(context.Context) error { return nil }

// NewPacer returns a SleepPacer for a positive interval and NopPacer otherwise.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NopPacer{}
	}
	return SleepPacer{Interval: interval}
}
