package display

import (
	"fmt"

	"github.com/tarm/serial"
)

// Serial wiring defaults.
const (
	DefaultPort = "/dev/ttyAMA0"
	DefaultBaud = 9600
)

// SerialDisplay drives a serial display module (or any line-oriented
// consumer) with one HH:MM:SS frame per displayed second.
type SerialDisplay struct {
	port  *serial.Port
	clock clock
}

// NewSerialDisplay opens the serial port.
func NewSerialDisplay(port string, baud int) (*SerialDisplay, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open display port %s: %w", port, err)
	}
	return &SerialDisplay{port: p}, nil
}

// SetTime sets the displayed time and pushes a frame immediately.
func (d *SerialDisplay) SetTime(seconds int64) {
	d.clock.set(seconds)
	d.port.Write([]byte(d.clock.frame()))
}

// Advance adds one beat's duration and writes a frame when the displayed
// second changes.
func (d *SerialDisplay) Advance(micros int64) error {
	if !d.clock.advance(micros) {
		return nil
	}
	if _, err := d.port.Write([]byte(d.clock.frame())); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close releases the port.
func (d *SerialDisplay) Close() error {
	return d.port.Close()
}
