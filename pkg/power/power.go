// Package power provides the inter-sample suspension primitives.
package power

import (
	"context"
	"time"
)

// Manager suspends the sampler between acquisitions.
type Manager interface {
	// Sleep suspends for d in low-power mode, quiescing shared radio hardware.
	Sleep(ctx context.Context, d time.Duration) error
	// DelayUntil waits until lastWake+interval without powering anything
	// down and returns that deadline.
	DelayUntil(ctx context.Context, lastWake time.Time, interval time.Duration) (time.Time, error)
	// Now returns the current tick.
	Now() time.Time
}

// Radio is shared communication hardware that must be idle before a
// low-power suspend.
type Radio interface {
	Quiesce()
}

// Host implements Manager with timers on a general purpose OS.
type Host struct {
	radio Radio
}

var _ Manager = (*Host)(nil)

// NewHost creates a host power manager. radio may be nil.
func NewHost(radio Radio) *Host {
	return &Host{radio: radio}
}

// Sleep implements Manager.
func (h *Host) Sleep(ctx context.Context, d time.Duration) error {
	if h.radio != nil {
		h.radio.Quiesce()
	}
	return wait(ctx, d)
}

// DelayUntil implements Manager. A deadline already in the past returns
// immediately, so the period does not drift with loop overruns.
func (h *Host) DelayUntil(ctx context.Context, lastWake time.Time, interval time.Duration) (time.Time, error) {
	next := lastWake.Add(interval)
	return next, wait(ctx, time.Until(next))
}

// Now implements Manager.
func (h *Host) Now() time.Time { return time.Now() }

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
