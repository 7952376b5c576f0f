package sample

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriple_Sum(t *testing.T) {
	assert.Equal(t, float32(0.5), Triple{1, -0.75, 0.25}.Sum())
}

func TestAccumulator_ConstantWindow(t *testing.T) {
	tests := []struct {
		name  string
		value Triple
	}{
		{"positive", Triple{0.5, 1.0, 0.25}},
		{"negative", Triple{-0.5, -2.0, -0.125}},
		{"zero", Triple{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(750)
			for range 750 {
				acc.Add(tt.value)
			}

			rms, ok := acc.TryFlush()
			require.True(t, ok)
			for i := range rms {
				assert.InDelta(t, math32.Abs(tt.value[i]), rms[i], 1e-4)
			}
		})
	}
}

func TestAccumulator_FlushOncePerWindow(t *testing.T) {
	const size = 25
	acc := NewAccumulator(size)

	flushes := 0
	for i := 1; i <= size*4; i++ {
		acc.Add(Triple{1, 2, 3})
		if _, ok := acc.TryFlush(); ok {
			flushes++
			assert.Equal(t, 0, i%size, "flush must land on a window boundary")
			assert.Equal(t, 0, acc.Count())
			assert.Equal(t, [Axes]float32{}, acc.Sums())
		} else {
			assert.Less(t, acc.Count(), size)
		}
	}

	assert.Equal(t, 4, flushes)
}

func TestAccumulator_IncompleteWindow(t *testing.T) {
	acc := NewAccumulator(3)
	acc.Add(Triple{1, 1, 1})
	acc.Add(Triple{1, 1, 1})

	_, ok := acc.TryFlush()
	assert.False(t, ok)
	assert.Equal(t, 2, acc.Count())
	assert.Equal(t, [Axes]float32{2, 2, 2}, acc.Sums())
}

func TestAccumulator_MixedValues(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Add(Triple{3, 0, 1})
	acc.Add(Triple{-4, 0, -1})

	rms, ok := acc.TryFlush()
	require.True(t, ok)

	// sqrt((9+16)/2), sqrt(0), sqrt((1+1)/2)
	assert.InDelta(t, 3.5355, rms[0], 1e-4)
	assert.InDelta(t, 0, rms[1], 1e-6)
	assert.InDelta(t, 1, rms[2], 1e-6)
}

func TestNewAccumulator_InvalidSize(t *testing.T) {
	acc := NewAccumulator(0)
	assert.Equal(t, 1, acc.Size())

	acc.Add(Triple{2, 2, 2})
	rms, ok := acc.TryFlush()
	require.True(t, ok)
	assert.Equal(t, RMS{2, 2, 2}, rms)
}
