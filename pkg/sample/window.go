package sample

import "github.com/chewxy/math32"

// Accumulator collects squared per-axis samples over a non-overlapping
// window and flushes one RMS vector every size samples.
//
// It is not a sliding window: after each flush both the sums and the count
// are reset to zero, so feature resolution is exactly one vector per window.
type Accumulator struct {
	size  int
	sums  [Axes]float32
	count int
}

// NewAccumulator creates an accumulator flushing every size samples.
// Sizes below one are treated as one.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = 1
	}
	return &Accumulator{size: size}
}

// Add accumulates the squared value of each axis and counts the sample.
func (a *Accumulator) Add(t Triple) {
	for i, v := range t {
		a.sums[i] += v * v
	}
	a.count++
}

// TryFlush returns the window RMS once count reaches the window size and
// resets the accumulator. It returns false while the window is incomplete.
func (a *Accumulator) TryFlush() (RMS, bool) {
	if a.count < a.size {
		return RMS{}, false
	}

	inv := 1 / float32(a.size)
	var rms RMS
	for i := range rms {
		rms[i] = math32.Sqrt(a.sums[i] * inv)
	}
	a.Reset()
	return rms, true
}

// Reset clears the running sums and count.
func (a *Accumulator) Reset() {
	a.sums = [Axes]float32{}
	a.count = 0
}

// Size returns the window length in samples.
func (a *Accumulator) Size() int { return a.size }

// Count returns the number of samples accumulated since the last flush.
func (a *Accumulator) Count() int { return a.count }

// Sums returns the running squared sums.
func (a *Accumulator) Sums() [Axes]float32 { return a.sums }
