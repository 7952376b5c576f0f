package sample

// Axes is the number of accelerometer axes in a Triple.
const Axes = 3

// Triple represents one accelerometer acquisition (g per axis).
type Triple [Axes]float32

// Sum returns the axis-summed value used as one point of the calibration signal.
func (t Triple) Sum() float32 {
	return t[0] + t[1] + t[2]
}

// RMS is the per-axis root-mean-square of one window.
type RMS [Axes]float32
