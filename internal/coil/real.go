//go:build linux

package coil

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// settleTime suppresses edges that follow a pass too closely: the coil
// voltage rings as the magnet swings away, and the kick pulse itself induces
// an edge. No supported resonator beats faster than this.
const settleTime = 250 * time.Millisecond

// Kick pulse shape, matching the original drive electronics.
const (
	kickDelay = 5 * time.Millisecond
	kickTime  = 20 * time.Millisecond
)

// RealDetector watches a GPIO line for rising edges from the coil comparator.
type RealDetector struct {
	line *gpiocdev.Line

	// mu orders channel sends from the event goroutine against Close: the
	// line can deliver a final buffered event concurrently with its own
	// Close, and a send must never race the channel's closure.
	mu     sync.Mutex
	closed bool
	passes chan Pass

	lastUs uint64
}

// NewRealDetector requests the sense line on gpiochip0 with edge detection.
func NewRealDetector(pin int) (*RealDetector, error) {
	d := &RealDetector{passes: make(chan Pass, 4)}
	line, err := gpiocdev.RequestLine("gpiochip0", pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(d.handleEdge))
	if err != nil {
		return nil, fmt.Errorf("request sense pin %d: %w", pin, err)
	}
	d.line = line
	return d, nil
}

// handleEdge runs on gpiocdev's event goroutine. It timestamps from the
// kernel's event time, filters ringing, and hands the pass to the channel.
func (d *RealDetector) handleEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	us := uint64(evt.Timestamp / time.Microsecond)
	if d.lastUs != 0 && us-d.lastUs < uint64(settleTime/time.Microsecond) {
		return // ringing or kick feedback, not a new pass
	}
	var interval int64
	if d.lastUs != 0 {
		interval = int64(us - d.lastUs)
	}
	d.lastUs = us

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.passes <- Pass{Timestamp: us, Interval: interval}:
	default:
		// The consumer is wedged; dropping the pass is better than blocking
		// the GPIO event goroutine.
	}
}

// Passes returns the pass channel.
func (d *RealDetector) Passes() <-chan Pass {
	return d.passes
}

// Close releases the sense line and closes the pass channel.
func (d *RealDetector) Close() error {
	err := d.line.Close()
	d.closePasses()
	return err
}

// closePasses marks the detector closed and closes the pass channel, under
// the same lock the event handler sends under.
func (d *RealDetector) closePasses() {
	d.mu.Lock()
	d.closed = true
	close(d.passes)
	d.mu.Unlock()
}

// RealKicker pulses the drive coil through a GPIO output line.
type RealKicker struct {
	line *gpiocdev.Line
}

// NewRealKicker requests the kick line on gpiochip0 as an output, initially
// low (coil de-energized).
func NewRealKicker(pin int) (*RealKicker, error) {
	line, err := gpiocdev.RequestLine("gpiochip0", pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request kick pin %d: %w", pin, err)
	}
	return &RealKicker{line: line}, nil
}

// Kick delays, raises the line for the pulse duration, and lowers it again.
func (k *RealKicker) Kick() error {
	time.Sleep(kickDelay)
	if err := k.line.SetValue(1); err != nil {
		return fmt.Errorf("kick on: %w", err)
	}
	time.Sleep(kickTime)
	if err := k.line.SetValue(0); err != nil {
		return fmt.Errorf("kick off: %w", err)
	}
	return nil
}

// Close lowers the line and releases it.
func (k *RealKicker) Close() error {
	k.line.SetValue(0)
	return k.line.Close()
}
