// Package therm reads ambient temperature for the calibration engine.
// The real implementation talks to a TMP102 sensor over I2C; the fake allows
// testing without hardware. Readings are fixed-point degrees C times 256,
// with escapement.TempNone standing in for "no usable reading" — the sensor
// is optional, and the rest of the system degrades gracefully without it.
package therm

import "github.com/dehne/escapement/internal/escapement"

// Sensor reads the current temperature.
type Sensor interface {
	// Read returns the temperature, or escapement.TempNone if the sensor is
	// absent or the read fails. Polled at most once per beat.
	Read() escapement.Temp

	// Close releases the bus.
	Close() error
}

// TMP102 wiring defaults.
const (
	DefaultBus  = "1"  // /dev/i2c-1 on a Raspberry Pi
	DefaultAddr = 0x48 // TMP102 with ADD0 grounded
)
