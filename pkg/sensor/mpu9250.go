package sensor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/itohio/fanguard/pkg/sample"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// lsbPerG is the accelerometer sensitivity at ±2g; each range step halves it.
const lsbPerG = 16384.0

// MPU9250 reads the accelerometer of an MPU9250/MPU6500 over SPI.
type MPU9250 struct {
	imu   *mpu9250.MPU9250
	scale float32
}

// NewMPU9250 initializes the sensor on spiDev with chip select csPin and
// the given accelerometer range (0=±2g .. 3=±16g).
func NewMPU9250(spiDev, csPin string, accelRange byte, logger *slog.Logger) (*MPU9250, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if accelRange > 3 {
		return nil, fmt.Errorf("accel range %d out of range 0-3", accelRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("initialization: %w", err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("set accel range: %w", err)
	}
	logger.Info("accelerometer range set", "range", accelRange, "g", 2<<accelRange)

	if err := imu.Calibrate(); err != nil {
		logger.Warn("accelerometer calibration failed", "error", err)
	}

	return &MPU9250{
		imu:   imu,
		scale: float32(int(1)<<accelRange) / lsbPerG,
	}, nil
}

// Read implements Reader.
func (m *MPU9250) Read(_ context.Context) (sample.Triple, error) {
	ax, err := m.imu.GetAccelerationX()
	if err != nil {
		return sample.Triple{}, fmt.Errorf("acc X: %w", err)
	}
	ay, err := m.imu.GetAccelerationY()
	if err != nil {
		return sample.Triple{}, fmt.Errorf("acc Y: %w", err)
	}
	az, err := m.imu.GetAccelerationZ()
	if err != nil {
		return sample.Triple{}, fmt.Errorf("acc Z: %w", err)
	}

	return scaleRaw(ax, ay, az, m.scale), nil
}

func scaleRaw(ax, ay, az int16, scale float32) sample.Triple {
	return sample.Triple{
		float32(ax) * scale,
		float32(ay) * scale,
		float32(az) * scale,
	}
}
