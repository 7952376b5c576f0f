// Package rate derives the steady-state sampling rate from the dominant
// vibration frequency found during calibration.
package rate

import (
	"sync"
	"time"
)

// DefaultSafetyFactor over-samples the peak frequency by 2.5x, above the
// Nyquist minimum of 2x.
const DefaultSafetyFactor = 2.5

// Limits bound the derived session.
type Limits struct {
	InitialMaxRateHz       int     // hardware ceiling and fallback base
	SessionDurationSeconds int     // window length in seconds
	SafetyFactor           float64 // multiplier over the peak frequency
}

// Session is the steady-state sampling configuration.
// WindowSize == RateHz * SessionDurationSeconds and RateHz <= InitialMaxRateHz.
type Session struct {
	RateHz     int
	WindowSize int
	Fallback   bool // no usable peak frequency was supplied
}

// Interval returns the time between two acquisitions.
func (s Session) Interval() time.Duration {
	if s.RateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.RateHz)
}

// Derive converts a peak frequency into a session. Peak frequencies at or
// below zero, or ones that would yield less than 1 Hz, fall back to half of
// the initial maximum rate. The result never exceeds the initial maximum.
func Derive(maxFreqHz float64, l Limits) Session {
	factor := l.SafetyFactor
	if factor == 0 {
		factor = DefaultSafetyFactor
	}

	s := Session{}
	candidate := int(factor * maxFreqHz)
	if maxFreqHz <= 0 || candidate < 1 {
		candidate = l.InitialMaxRateHz / 2
		s.Fallback = true
	}

	s.RateHz = min(candidate, l.InitialMaxRateHz)
	s.WindowSize = s.RateHz * l.SessionDurationSeconds
	return s
}

// Controller applies Derive exactly once per process lifetime.
type Controller struct {
	limits  Limits
	once    sync.Once
	session Session
}

// NewController creates a one-shot controller.
func NewController(l Limits) *Controller {
	return &Controller{limits: l}
}

// Configure derives the session on the first call and returns true.
// Later calls are no-ops returning the first session and false.
func (c *Controller) Configure(maxFreqHz float64) (Session, bool) {
	applied := false
	c.once.Do(func() {
		c.session = Derive(maxFreqHz, c.limits)
		applied = true
	})
	return c.session, applied
}
