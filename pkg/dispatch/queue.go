package dispatch

import (
	"sync/atomic"

	"github.com/itohio/fanguard/pkg/sample"
)

// Record is one window outcome shipped to the transmission unit.
type Record struct {
	Anomaly     bool       `json:"anomaly"`
	TimestampMs uint32     `json:"time_stamp"`
	RMS         sample.RMS `json:"rms"`
}

// Queue is a bounded FIFO between the sampler and the transmission unit.
// The sampler is the only producer and the transmission unit the only consumer.
type Queue struct {
	ch      chan Record
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to size records.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Record, size)}
}

// TrySend enqueues rec without waiting. A full queue drops the record and
// returns false.
func (q *Queue) TrySend(rec Record) bool {
	select {
	case q.ch <- rec:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Records returns the consumer side of the queue.
func (q *Queue) Records() <-chan Record { return q.ch }

// Dropped returns the number of records lost to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Len returns the number of queued records.
func (q *Queue) Len() int { return len(q.ch) }
