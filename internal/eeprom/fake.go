package eeprom

import "github.com/dehne/escapement/internal/escapement"

// FakeStore is an in-memory store for tests.
type FakeStore struct {
	// Settings is the block Load returns when Valid is set.
	Settings escapement.Settings

	// Valid controls whether Load reports a usable block.
	Valid bool

	// Saves counts calls to Save.
	Saves int
}

// NewFakeStore creates an empty FakeStore (Load reports no block).
func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// Load returns the scripted block.
func (f *FakeStore) Load() (escapement.Settings, bool) {
	return f.Settings, f.Valid
}

// Save records the block and marks it valid for subsequent loads.
func (f *FakeStore) Save(set escapement.Settings) {
	f.Settings = set
	f.Valid = true
	f.Saves++
}
