// Package dispatch hands window records to the transmission unit and keeps
// the one-shot latches shared with it.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Transmitter is the concurrent transmission unit. Start is called at most
// once; it must return promptly and consume records until ctx is done.
// redeliver yields the latched anomalous record at most once over the
// process lifetime.
type Transmitter interface {
	Start(ctx context.Context, records <-chan Record, redeliver func() (Record, bool))
}

// Dispatcher publishes records, latches the anomalous one and starts the
// transmission unit on the first publish.
//
// Only the sampler calls Publish. TakeAnomaly may be called from the
// transmission unit; every latch is a single atomic so no lock is shared
// between the two.
type Dispatcher struct {
	queue  *Queue
	tx     Transmitter
	logger *slog.Logger

	anomaly     atomic.Pointer[Record]
	anomalySent atomic.Bool
	started     atomic.Bool
}

// New creates a dispatcher on queue q starting tx lazily.
func New(q *Queue, tx Transmitter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{queue: q, tx: tx, logger: logger}
}

// Publish forwards rec to the outbound queue without blocking. A full queue
// drops rec silently. Anomalous records are latched for redelivery until the
// redelivery has fired. The first call starts the transmission unit.
// It reports whether rec was enqueued.
func (d *Dispatcher) Publish(ctx context.Context, rec Record) bool {
	if rec.Anomaly && !d.anomalySent.Load() {
		latched := rec
		if d.anomaly.Swap(&latched) == nil {
			d.logger.Warn("anomaly detected", "time_stamp", rec.TimestampMs)
		}
	}

	ok := d.queue.TrySend(rec)
	if !ok {
		d.logger.Debug("queue full, record dropped", "time_stamp", rec.TimestampMs, "dropped", d.queue.Dropped())
	}

	if d.started.CompareAndSwap(false, true) {
		d.logger.Info("starting transmission")
		d.tx.Start(ctx, d.queue.Records(), d.TakeAnomaly)
	}

	return ok
}

// TakeAnomaly returns the latched anomalous record the first time it is
// called after an anomaly was detected. Every other call returns false.
func (d *Dispatcher) TakeAnomaly() (Record, bool) {
	rec := d.anomaly.Load()
	if rec == nil {
		return Record{}, false
	}
	if !d.anomalySent.CompareAndSwap(false, true) {
		return Record{}, false
	}
	// A newer anomaly may have been latched between the load and the swap.
	if latest := d.anomaly.Load(); latest != nil {
		rec = latest
	}
	return *rec, true
}

// AnomalyDetected reports whether any window was anomalous.
func (d *Dispatcher) AnomalyDetected() bool { return d.anomaly.Load() != nil }

// AnomalySent reports whether the anomaly redelivery has fired.
func (d *Dispatcher) AnomalySent() bool { return d.anomalySent.Load() }

// TransmissionStarted reports whether the transmission unit is running.
func (d *Dispatcher) TransmissionStarted() bool { return d.started.Load() }
