//go:build !linux

package therm

import (
	"errors"

	"github.com/dehne/escapement/internal/escapement"
)

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(busName string, addr uint16) (*RealSensor, error) {
	return nil, errors.New("therm: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (s *RealSensor) Read() escapement.Temp { return escapement.TempNone }

// Close is not implemented on non-Linux platforms.
func (s *RealSensor) Close() error { return nil }
