package transmit

import (
	"context"
	"log/slog"

	"github.com/itohio/fanguard/pkg/dispatch"
)

var _ dispatch.Transmitter = (*Log)(nil)

// Log writes records to a logger. Used when no broker is configured.
type Log struct {
	logger *slog.Logger
	done   chan struct{}
}

// NewLog creates a log sink. A nil logger discards records.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{logger: logger, done: make(chan struct{})}
}

// Start implements dispatch.Transmitter. The sink is always connected, so a
// latched anomaly is redelivered on start or after the next record.
func (l *Log) Start(ctx context.Context, records <-chan dispatch.Record, redeliver func() (dispatch.Record, bool)) {
	go func() {
		defer close(l.done)
		l.redeliver(redeliver)
		for {
			select {
			case <-ctx.Done():
				return
			case rec := <-records:
				l.write(rec, false)
				l.redeliver(redeliver)
			}
		}
	}()
}

// Done is closed once the sink goroutine has returned.
func (l *Log) Done() <-chan struct{} { return l.done }

func (l *Log) redeliver(take func() (dispatch.Record, bool)) {
	if rec, ok := take(); ok {
		l.write(rec, true)
	}
}

func (l *Log) write(rec dispatch.Record, redelivered bool) {
	l.logger.Info("record",
		"time_stamp", rec.TimestampMs,
		"anomaly", rec.Anomaly,
		"rms_x", rec.RMS[0],
		"rms_y", rec.RMS[1],
		"rms_z", rec.RMS[2],
		"redelivered", redelivered,
	)
}
