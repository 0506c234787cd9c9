// Package display advances the time-of-day display from returned beat
// durations. The real implementation writes HH:MM:SS frames to a serial
// display module; the fake records frames for tests.
package display

import "fmt"

// Display consumes beat durations and shows the accumulated time of day.
type Display interface {
	// Advance adds one beat's duration (microseconds) to the displayed
	// time. Durations of zero (no usable beat) are ignored.
	Advance(micros int64) error

	// SetTime sets the displayed time of day directly, in seconds past
	// midnight. Used at startup and when the operator corrects the clock.
	SetTime(seconds int64)

	// Close releases the display.
	Close() error
}

// clock accumulates beat microseconds into a wall-clock second counter and
// reports when the displayed second changes.
type clock struct {
	micros  int64 // accumulated microseconds within the current second
	seconds int64 // seconds past midnight
}

func (c *clock) set(seconds int64) {
	c.seconds = seconds % 86400
	c.micros = 0
}

// advance folds in one beat, returning true when the displayed second moved.
func (c *clock) advance(micros int64) bool {
	if micros <= 0 {
		return false
	}
	c.micros += micros
	if c.micros < 1_000_000 {
		return false
	}
	c.seconds = (c.seconds + c.micros/1_000_000) % 86400
	c.micros %= 1_000_000
	return true
}

// frame renders the current time as the display's HH:MM:SS line.
func (c *clock) frame() string {
	return fmt.Sprintf("%02d:%02d:%02d\r\n",
		c.seconds/3600, c.seconds/60%60, c.seconds%60)
}
