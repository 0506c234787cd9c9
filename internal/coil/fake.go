package coil

// FakeDetector delivers scripted passes for tests.
type FakeDetector struct {
	ch chan Pass

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDetector creates a FakeDetector with room to script ahead.
func NewFakeDetector() *FakeDetector {
	return &FakeDetector{ch: make(chan Pass, 64)}
}

// Emit scripts one pass.
func (f *FakeDetector) Emit(p Pass) {
	f.ch <- p
}

// Passes returns the scripted pass channel.
func (f *FakeDetector) Passes() <-chan Pass {
	return f.ch
}

// Close marks the detector closed and closes the channel.
func (f *FakeDetector) Close() error {
	if !f.Closed {
		f.Closed = true
		close(f.ch)
	}
	return nil
}

// FakeKicker counts kicks for test assertions.
type FakeKicker struct {
	// Kicks counts calls to Kick.
	Kicks int

	// KickError, if set, is returned by Kick.
	KickError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeKicker creates a FakeKicker.
func NewFakeKicker() *FakeKicker {
	return &FakeKicker{}
}

// Kick records the call.
func (f *FakeKicker) Kick() error {
	if f.KickError != nil {
		return f.KickError
	}
	f.Kicks++
	return nil
}

// Close marks the kicker closed.
func (f *FakeKicker) Close() error {
	f.Closed = true
	return nil
}
