package power

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRadio struct {
	quiesced atomic.Int32
}

func (r *countingRadio) Quiesce() { r.quiesced.Add(1) }

func TestHost_SleepQuiescesRadio(t *testing.T) {
	radio := &countingRadio{}
	h := NewHost(radio)

	start := time.Now()
	require.NoError(t, h.Sleep(context.Background(), 20*time.Millisecond))

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, int32(1), radio.quiesced.Load())
}

func TestHost_SleepWithoutRadio(t *testing.T) {
	h := NewHost(nil)
	assert.NoError(t, h.Sleep(context.Background(), time.Millisecond))
}

func TestHost_SleepCancelled(t *testing.T) {
	h := NewHost(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.Sleep(ctx, time.Hour), context.Canceled)
}

func TestHost_DelayUntil(t *testing.T) {
	radio := &countingRadio{}
	h := NewHost(radio)

	last := h.Now()
	next, err := h.DelayUntil(context.Background(), last, 30*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, last.Add(30*time.Millisecond), next)
	assert.False(t, time.Now().Before(next))
	assert.Equal(t, int32(0), radio.quiesced.Load(), "periodic delay must not touch the radio")
}

func TestHost_DelayUntilPastDeadline(t *testing.T) {
	h := NewHost(nil)
	last := time.Now().Add(-time.Second)

	start := time.Now()
	next, err := h.DelayUntil(context.Background(), last, 10*time.Millisecond)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, last.Add(10*time.Millisecond), next)
}
