// Package scheduler drives the sampler: one calibration pass at a fixed high
// rate, then the adaptive-rate RMS window loop until shutdown.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/itohio/fanguard/pkg/anomaly"
	"github.com/itohio/fanguard/pkg/config"
	"github.com/itohio/fanguard/pkg/dispatch"
	"github.com/itohio/fanguard/pkg/power"
	"github.com/itohio/fanguard/pkg/rate"
	"github.com/itohio/fanguard/pkg/sample"
	"github.com/itohio/fanguard/pkg/sensor"
	"github.com/itohio/fanguard/pkg/spectrum"
)

// ErrNotCalibrated is returned by Step before calibration has completed.
var ErrNotCalibrated = errors.New("scheduler not calibrated")

// Scheduler owns every buffer of the sampling loop. It is driven from a
// single goroutine; State, Session and Samples may be read from any.
type Scheduler struct {
	cfg        *config.SamplingConfig
	reader     sensor.Reader
	power      power.Manager
	evaluator  *anomaly.Evaluator
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	state   atomic.Int32
	session atomic.Pointer[rate.Session]
	samples atomic.Uint64

	capture    *spectrum.Buffer
	estimator  *spectrum.Estimator
	controller *rate.Controller
	window     *sample.Accumulator

	start    time.Time
	lastWake time.Time
	delaying bool
}

// New creates a scheduler in the Uninitialized state.
func New(cfg *config.SamplingConfig, r sensor.Reader, pm power.Manager, ev *anomaly.Evaluator, d *dispatch.Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		cfg:        cfg,
		reader:     r,
		power:      pm,
		evaluator:  ev,
		dispatcher: d,
		logger:     logger,
		capture:    spectrum.NewBuffer(cfg.CalibrationSamples),
		estimator:  spectrum.NewEstimator(cfg.CalibrationSamples, float64(cfg.CalibrationRateHz), cfg.NoiseThreshold),
		controller: rate.NewController(rate.Limits{
			InitialMaxRateHz:       cfg.InitialMaxRateHz,
			SessionDurationSeconds: cfg.SessionDurationSeconds,
			SafetyFactor:           cfg.SafetyFactor,
		}),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Session returns the steady-state configuration. It is the zero Session
// until calibration has completed.
func (s *Scheduler) Session() rate.Session {
	if p := s.session.Load(); p != nil {
		return *p
	}
	return rate.Session{}
}

// Samples returns the number of steady-state acquisitions so far.
func (s *Scheduler) Samples() uint64 { return s.samples.Load() }

// Run calibrates once and then steps until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Calibrate(ctx); err != nil {
		return err
	}
	for {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
}

// Calibrate fills the spectral buffer at the calibration rate, derives the
// steady session from its dominant frequency and enters Steady. It is a
// no-op once calibration has started. Cancellation leaves the scheduler in
// Calibrating.
func (s *Scheduler) Calibrate(ctx context.Context) error {
	if s.State() != Uninitialized {
		return nil
	}
	s.advance(Calibrating)
	s.start = s.power.Now()

	interval := time.Second / time.Duration(s.cfg.CalibrationRateHz)
	s.logger.Info("calibrating", "rate_hz", s.cfg.CalibrationRateHz, "samples", s.capture.Len())

	s.capture.Reset()
	for !s.capture.Full() {
		v, err := s.reader.Read(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logger.Warn("sensor read failed, calibration point skipped", "error", err)
		default:
			s.capture.Append(v.Sum())
		}
		if err := s.power.Sleep(ctx, interval); err != nil {
			return err
		}
	}

	peak := s.estimator.PeakFrequency(s.capture)
	if peak == spectrum.NoPeak {
		s.logger.Warn("no dominant frequency found, using fallback rate")
	}

	session, _ := s.controller.Configure(peak)
	s.session.Store(&session)
	s.window = sample.NewAccumulator(session.WindowSize)

	s.logger.Info("calibrated",
		"peak_hz", peak,
		"rate_hz", session.RateHz,
		"window", session.WindowSize,
		"fallback", session.Fallback,
	)

	s.advance(Steady)
	return nil
}

// Step runs one steady-state iteration: acquire, accumulate, on a full
// window evaluate and publish, then wait for the next acquisition.
// A failed read skips the sample but still counts and waits.
func (s *Scheduler) Step(ctx context.Context) error {
	if s.State() != Steady {
		return ErrNotCalibrated
	}
	// The period runs from the start of this iteration, so an overrun
	// delays the next read instead of bursting to catch up.
	s.lastWake = s.power.Now()

	v, err := s.reader.Read(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		s.logger.Warn("sensor read failed, sample skipped", "error", err)
	default:
		s.window.Add(v)
		if rms, ok := s.window.TryFlush(); ok {
			s.publish(ctx, rms)
		}
	}

	n := s.samples.Add(1)
	if hz := uint64(s.Session().RateHz); hz > 0 && n%hz == 0 {
		s.logger.Debug("sampling", "samples", n)
	}

	return s.wait(ctx)
}

func (s *Scheduler) publish(ctx context.Context, rms sample.RMS) {
	rec := dispatch.Record{
		Anomaly:     s.evaluator.Evaluate(ctx, rms),
		TimestampMs: s.timestampMs(),
		RMS:         rms,
	}
	s.logger.Info("window",
		"time_stamp", rec.TimestampMs,
		"rms_x", rms[0],
		"rms_y", rms[1],
		"rms_z", rms[2],
		"anomaly", rec.Anomaly,
	)
	s.dispatcher.Publish(ctx, rec)
}

// wait uses the power-saving sleep until the transmission unit runs, then
// switches to the periodic delay for good.
func (s *Scheduler) wait(ctx context.Context) error {
	interval := s.Session().Interval()

	if !s.delaying {
		if !s.dispatcher.TransmissionStarted() {
			return s.power.Sleep(ctx, interval)
		}
		s.delaying = true
		s.logger.Info("transmission running, switching to periodic delay")
	}

	_, err := s.power.DelayUntil(ctx, s.lastWake, interval)
	return err
}

// timestampMs returns the milliseconds since calibration began, wrapping
// at 2^32 like a device tick counter.
func (s *Scheduler) timestampMs() uint32 {
	return uint32(s.power.Now().Sub(s.start).Milliseconds())
}
