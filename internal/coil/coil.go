// Package coil senses the resonator's magnet passing the pickup coil and
// drives the kick pulse that keeps the resonator swinging.
// The real implementation uses the Linux GPIO character device: a comparator
// squares up the induced coil voltage onto an input line, and the kick is a
// timed pulse on an output line. The fake implementation allows testing
// without hardware.
package coil

// Pass is one detected passage of the magnet over the coil.
type Pass struct {
	// Timestamp is the kernel's monotonic timestamp of the edge, in
	// microseconds. Strictly increasing across passes.
	Timestamp uint64

	// Interval is the measured microseconds since the previous pass, or 0
	// for the first pass after startup.
	Interval int64
}

// Detector delivers one Pass per detected passage.
type Detector interface {
	// Passes returns the channel on which passes are delivered. The channel
	// is closed when the detector shuts down.
	Passes() <-chan Pass

	// Close releases the sense line.
	Close() error
}

// Kicker produces the drive pulse after a pass.
type Kicker interface {
	// Kick waits the pulse delay, then energizes the coil for the pulse
	// duration. Blocks for the full delay + pulse time (~25 ms).
	Kick() error

	// Close releases the kick line.
	Close() error
}

// Pin defaults (BCM numbering).
const (
	DefaultSensePin = 17
	DefaultKickPin  = 27
)
