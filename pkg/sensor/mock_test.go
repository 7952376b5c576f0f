package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/fanguard/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestMock_Tone(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMock(&config.MockConfig{ToneHz: 10, Amplitude: 0.5}, clock.Now)

	// At t=0 every tone term is at its phase offset and z carries gravity.
	v, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0, v[0], 1e-6)
	assert.InDelta(t, 1+0.25*0.5*0.5, v[2], 1e-5)

	// A quarter period later x peaks at the amplitude.
	clock.t = clock.t.Add(25 * time.Millisecond)
	v, err = m.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v[0], 1e-5)
}

func TestMock_Fault(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMock(&config.MockConfig{
		ToneHz:     10,
		Amplitude:  0.5,
		FaultAfter: time.Second,
		FaultGain:  4,
	}, clock.Now)

	clock.t = clock.t.Add(25 * time.Millisecond)
	before, err := m.Read(context.Background())
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Second)
	after, err := m.Read(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 0.5, before[0], 1e-4)
	assert.InDelta(t, 2.0, after[0], 1e-3)
}

func TestMock_NoiseBounded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMock(&config.MockConfig{ToneHz: 10, Amplitude: 0.5, NoiseLevel: 0.01}, clock.Now)

	for range 100 {
		v, err := m.Read(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 0, v[0], 0.01)
	}
}

func TestMock_ReadDurationCancelled(t *testing.T) {
	m := NewMock(&config.MockConfig{ToneHz: 10, Amplitude: 0.5, ReadDuration: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScaleRaw(t *testing.T) {
	v := scaleRaw(16384, -8192, 0, 1/lsbPerG)
	assert.InDelta(t, 1.0, v[0], 1e-6)
	assert.InDelta(t, -0.5, v[1], 1e-6)

	// ±16g range: 2048 LSB per g.
	v = scaleRaw(2048, 0, 0, 8/lsbPerG)
	assert.InDelta(t, 1.0, v[0], 1e-6)
}
