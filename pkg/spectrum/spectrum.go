// Package spectrum estimates the dominant vibration frequency of a
// calibration capture.
package spectrum

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// NoPeak is returned by PeakFrequency when no bin qualifies as a peak.
const NoPeak = -1.0

// Buffer is a fixed-length capture of the axis-summed signal.
// It is filled point by point, reused by Reset and never resized.
type Buffer struct {
	data []float32
	pos  int
}

// NewBuffer allocates a capture buffer of n points.
func NewBuffer(n int) *Buffer {
	return &Buffer{data: make([]float32, n)}
}

// Append stores the next point. It returns false once the buffer is full.
func (b *Buffer) Append(v float32) bool {
	if b.pos >= len(b.data) {
		return false
	}
	b.data[b.pos] = v
	b.pos++
	return true
}

// Full reports whether every point has been written since the last Reset.
func (b *Buffer) Full() bool { return b.pos == len(b.data) }

// Len returns the capacity N of the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Filled returns the number of points written since the last Reset.
func (b *Buffer) Filled() int { return b.pos }

// Values returns the underlying points.
func (b *Buffer) Values() []float32 { return b.data }

// Reset rewinds the buffer so the next capture overwrites it.
func (b *Buffer) Reset() { b.pos = 0 }

// Estimator runs a Hamming-windowed forward FFT over a Buffer and finds the
// highest-frequency significant peak.
type Estimator struct {
	n              int
	rateHz         float64
	noiseThreshold float64

	fft    *fourier.FFT
	seq    []float64
	coeffs []complex128
	mags   []float64
}

// NewEstimator creates an estimator for n-point captures acquired at rateHz.
// Peaks must exceed noiseThreshold in magnitude.
func NewEstimator(n int, rateHz, noiseThreshold float64) *Estimator {
	return &Estimator{
		n:              n,
		rateHz:         rateHz,
		noiseThreshold: noiseThreshold,
		fft:            fourier.NewFFT(n),
		seq:            make([]float64, n),
		coeffs:         make([]complex128, n/2+1),
		mags:           make([]float64, n/2+1),
	}
}

// BinHz returns the frequency resolution of one bin.
func (e *Estimator) BinHz() float64 {
	return e.rateHz / float64(e.n)
}

// Analyze windows the buffer, transforms it and returns the magnitudes of
// bins [0, N/2]. The returned slice is reused by the next call.
// The buffer must be full; the estimator does not check.
func (e *Estimator) Analyze(buf *Buffer) []float64 {
	for i, v := range buf.Values() {
		e.seq[i] = float64(v)
	}
	window.Hamming(e.seq)

	e.coeffs = e.fft.Coefficients(e.coeffs, e.seq)
	for i, c := range e.coeffs {
		e.mags[i] = cmplx.Abs(c)
	}
	return e.mags
}

// PeakFrequency returns the frequency in Hz of the highest-frequency bin in
// [1, N/2) that is a strict local maximum above the noise threshold, or
// NoPeak if there is none.
func (e *Estimator) PeakFrequency(buf *Buffer) float64 {
	return e.peak(e.Analyze(buf))
}

func (e *Estimator) peak(mags []float64) float64 {
	peak := NoPeak
	for i := 1; i < e.n/2; i++ {
		m := mags[i]
		if m > mags[i-1] && m > mags[i+1] && m > e.noiseThreshold {
			// Later bins are higher in frequency, so the last match wins.
			peak = float64(i) * e.BinHz()
		}
	}
	return peak
}
