package display

// FakeDisplay records frames for test assertions.
type FakeDisplay struct {
	// Frames contains every HH:MM:SS frame the display would have shown.
	Frames []string

	// AdvanceError, if set, is returned by Advance when a frame is due.
	AdvanceError error

	// Closed tracks if Close was called.
	Closed bool

	clock clock
}

// NewFakeDisplay creates a FakeDisplay showing midnight.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// SetTime sets the displayed time and records a frame.
func (f *FakeDisplay) SetTime(seconds int64) {
	f.clock.set(seconds)
	f.Frames = append(f.Frames, f.clock.frame())
}

// Advance adds one beat's duration, recording a frame when the second moves.
func (f *FakeDisplay) Advance(micros int64) error {
	if !f.clock.advance(micros) {
		return nil
	}
	if f.AdvanceError != nil {
		return f.AdvanceError
	}
	f.Frames = append(f.Frames, f.clock.frame())
	return nil
}

// Close marks the display as closed.
func (f *FakeDisplay) Close() error {
	f.Closed = true
	return nil
}
