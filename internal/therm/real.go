//go:build linux

package therm

import (
	"fmt"
	"log"

	"github.com/dehne/escapement/internal/escapement"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// RealSensor reads a TMP102 over the Linux I2C bus.
type RealSensor struct {
	bus    i2c.BusCloser
	dev    i2c.Dev
	failed bool
}

// NewRealSensor opens the given I2C bus ("1" for /dev/i2c-1) and addresses
// the TMP102.
func NewRealSensor(busName string, addr uint16) (*RealSensor, error) {
	if _, err := driverreg.Init(); err != nil {
		return nil, fmt.Errorf("init i2c drivers: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	return &RealSensor{
		bus: bus,
		dev: i2c.Dev{Addr: addr, Bus: bus},
	}, nil
}

// Read fetches the TMP102 temperature register. The device powers up
// pointing at it, so a plain two-byte read suffices: 12 bits, left
// justified, 1/16 degree C per LSB. A failure reads as TempNone and is
// logged once until the sensor recovers, since reads happen every beat.
func (s *RealSensor) Read() escapement.Temp {
	var buf [2]byte
	if err := s.dev.Tx(nil, buf[:]); err != nil {
		if !s.failed {
			log.Printf("therm: read: %v", err)
			s.failed = true
		}
		return escapement.TempNone
	}
	if s.failed {
		log.Printf("therm: sensor recovered")
		s.failed = false
	}
	raw := int16(uint16(buf[0])<<8|uint16(buf[1])) >> 4 // 1/16 C steps
	return escapement.Temp(raw) * 16                    // to C*256
}

// Close releases the bus.
func (s *RealSensor) Close() error {
	return s.bus.Close()
}
