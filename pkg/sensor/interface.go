// Package sensor provides accelerometer readers for the sampler.
package sensor

import (
	"context"
	"errors"

	"github.com/itohio/fanguard/pkg/sample"
)

// ErrTimeout is returned when no reading arrived in time. It is transient.
var ErrTimeout = errors.New("sensor read timeout")

// ErrClosed is returned by readers that have been closed.
var ErrClosed = errors.New("sensor closed")

// Reader acquires one three-axis sample. Read may block briefly on I/O.
type Reader interface {
	Read(ctx context.Context) (sample.Triple, error)
}

var (
	_ Reader = (*Serial)(nil)
	_ Reader = (*Mock)(nil)
	_ Reader = (*MPU9250)(nil)
	_ Reader = (*Retrying)(nil)
)
