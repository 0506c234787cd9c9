package therm

import "github.com/dehne/escapement/internal/escapement"

// FakeSensor returns scripted temperature readings.
type FakeSensor struct {
	// Readings contains scripted values to return. Each call to Read
	// consumes the next one; when exhausted, the last value repeats.
	Readings []escapement.Temp

	// index tracks current position in Readings.
	index int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSensor creates a FakeSensor with the given readings.
func NewFakeSensor(readings ...escapement.Temp) *FakeSensor {
	return &FakeSensor{Readings: readings}
}

// Read returns the next scripted reading, or TempNone if none were scripted.
func (f *FakeSensor) Read() escapement.Temp {
	if len(f.Readings) == 0 {
		return escapement.TempNone
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}
