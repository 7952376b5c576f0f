package sensor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Azure/iot-operations-sdks/go/mqtt/retry"
	"github.com/itohio/fanguard/pkg/sample"
)

// Retrying wraps a Reader with a retry policy for transient failures.
type Retrying struct {
	reader Reader
	policy retry.Policy
}

// WithRetry retries failed reads of r with policy.
func WithRetry(r Reader, policy retry.Policy) *Retrying {
	return &Retrying{reader: r, policy: policy}
}

// NewBackoff returns an exponential backoff policy for sensor reads.
func NewBackoff(maxAttempts uint64, minInterval, maxInterval time.Duration, logger *slog.Logger) *retry.ExponentialBackoff {
	return &retry.ExponentialBackoff{
		MaxAttempts: maxAttempts,
		MinInterval: minInterval,
		MaxInterval: maxInterval,
		Logger:      logger,
	}
}

// Read implements Reader. Closed readers and cancelled contexts are not retried.
func (r *Retrying) Read(ctx context.Context) (sample.Triple, error) {
	var v sample.Triple
	err := r.policy.Start(ctx, "sensor read", func(ctx context.Context) (bool, error) {
		var err error
		v, err = r.reader.Read(ctx)
		if err != nil {
			return retryable(err), err
		}
		return false, nil
	})
	return v, err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
