package anomaly

import (
	"fmt"

	"github.com/itohio/fanguard/pkg/sample"
)

// Signal is an indexed feature provider handed to a classifier.
type Signal interface {
	// Len returns the number of features.
	Len() int
	// Read copies length features starting at offset into out.
	// offset+length beyond Len is a programming error and panics.
	Read(offset, length int, out []float32)
}

// RangeError describes an out-of-range feature read.
type RangeError struct {
	Offset, Length, Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("feature read [%d:%d] out of range for %d features", e.Offset, e.Offset+e.Length, e.Len)
}

// Features is the three-element RMS feature vector.
type Features [sample.Axes]float32

var _ Signal = (*Features)(nil)

// Len implements Signal.
func (f *Features) Len() int { return len(f) }

// Read implements Signal. It panics with a *RangeError instead of truncating.
func (f *Features) Read(offset, length int, out []float32) {
	if offset < 0 || length < 0 || offset+length > len(f) || length > len(out) {
		panic(&RangeError{Offset: offset, Length: length, Len: len(f)})
	}
	copy(out[:length], f[offset:offset+length])
}

// Slice reads the whole vector through Read.
func Slice(s Signal) []float32 {
	out := make([]float32, s.Len())
	s.Read(0, len(out), out)
	return out
}
