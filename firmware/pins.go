//go:build tinygo

package main

import (
	"machine"

	"tinygo.org/x/drivers/adxl345"
)

const (
	// Sampling configuration
	// The host never samples faster than its initial maximum rate (100 Hz by
	// default) and keeps only the newest line, so 200 Hz leaves 2x headroom.
	SAMPLE_INTERVAL_MS = 5

	// Accelerometer configuration
	ACCEL_RATE  = adxl345.RATE_400HZ // output data rate above the line rate
	ACCEL_RANGE = adxl345.RANGE_4G   // ±4g covers gravity plus machine vibration

	// I2C configuration
	I2C_FREQUENCY_HZ = 400000
	PIN_SDA          = machine.SDA_PIN
	PIN_SCL          = machine.SCL_PIN

	// Serial configuration
	// Baud rate calculation: Format "x,y,z\n" in micro-g
	// Example: "-4000000,-4000000,-4000000\n" = ~27 bytes max per line
	// 200 lines/sec * 27 bytes/line = 5,400 bytes/sec
	// UART 8N1: 10 bits/byte = 54,000 baud minimum
	// 115200 provides ~2.1x headroom (11,520 bytes/sec max / 5,400 bytes/sec required)
	UART_BAUD_RATE = 115200
)
