package sensor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/fanguard/pkg/config"
	"github.com/itohio/fanguard/pkg/sample"
)

// Mock simulates an accelerometer strapped to a rotating machine: one
// vibration tone on all three axes, gravity on Z and uniform noise.
type Mock struct {
	cfg *config.MockConfig
	now func() time.Time

	mu    sync.Mutex
	start time.Time
	rng   *rand.Rand
}

// NewMock creates a mock sensor. now defaults to time.Now and lets tests
// drive the simulated clock.
func NewMock(cfg *config.MockConfig, now func() time.Time) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			ToneHz:     10,
			Amplitude:  0.5,
			NoiseLevel: 0.01,
			FaultGain:  4,
		}
	}
	if now == nil {
		now = time.Now
	}

	return &Mock{
		cfg:   cfg,
		now:   now,
		start: now(),
		rng:   rand.New(rand.NewPCG(1, 2)),
	}
}

// Read implements Reader.
func (m *Mock) Read(ctx context.Context) (sample.Triple, error) {
	if m.cfg.ReadDuration > 0 {
		select {
		case <-time.After(m.cfg.ReadDuration):
		case <-ctx.Done():
			return sample.Triple{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.now().Sub(m.start)
	amp := float32(m.cfg.Amplitude)
	if m.cfg.FaultAfter > 0 && elapsed >= m.cfg.FaultAfter {
		amp *= float32(m.cfg.FaultGain)
	}

	phase := float32(math.Mod(2*math.Pi*m.cfg.ToneHz*elapsed.Seconds(), 2*math.Pi))

	return sample.Triple{
		amp*math32.Sin(phase) + m.noise(),
		0.5*amp*math32.Sin(phase+math32.Pi/3) + m.noise(),
		1 + 0.25*amp*math32.Sin(phase+math32.Pi/6) + m.noise(),
	}, nil
}

func (m *Mock) noise() float32 {
	if m.cfg.NoiseLevel == 0 {
		return 0
	}
	return float32(m.cfg.NoiseLevel) * (2*m.rng.Float32() - 1)
}
