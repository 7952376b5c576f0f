//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/adxl345"
)

var (
	uart = machine.UART0
	i2c  = machine.I2C0

	accel adxl345.Device

	// Timing
	lastRead time.Time
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	i2c.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY_HZ,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	})

	accel = adxl345.New(i2c)
	accel.Configure()
	accel.SetRate(ACCEL_RATE)
	accel.SetRange(ACCEL_RANGE)

	lastRead = time.Now()

	for {
		now := time.Now()
		if now.Sub(lastRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			outputSample()
			lastRead = now
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

// outputSample prints one "x,y,z\n" line in micro-g.
// Example: "-1250,3400,1001250\n"
func outputSample() {
	x, y, z, err := accel.ReadAcceleration()
	if err != nil {
		// Skip the line; the host treats the gap as a read timeout.
		return
	}

	print(x)
	print(",")
	print(y)
	print(",")
	print(z)
	print("\n")
}
