//go:build !linux

package coil

import "errors"

// RealDetector is not available on non-Linux platforms.
type RealDetector struct{}

// NewRealDetector returns an error on non-Linux platforms.
func NewRealDetector(pin int) (*RealDetector, error) {
	return nil, errors.New("coil: not supported on this platform (requires Linux)")
}

// Passes is not implemented on non-Linux platforms.
func (d *RealDetector) Passes() <-chan Pass { return nil }

// Close is not implemented on non-Linux platforms.
func (d *RealDetector) Close() error { return nil }

// RealKicker is not available on non-Linux platforms.
type RealKicker struct{}

// NewRealKicker returns an error on non-Linux platforms.
func NewRealKicker(pin int) (*RealKicker, error) {
	return nil, errors.New("coil: not supported on this platform (requires Linux)")
}

// Kick is not implemented on non-Linux platforms.
func (k *RealKicker) Kick() error { return errors.New("coil: not supported") }

// Close is not implemented on non-Linux platforms.
func (k *RealKicker) Close() error { return nil }
