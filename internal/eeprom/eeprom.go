// Package eeprom persists the escapement settings block.
// The name is historical: the original device kept this block in the
// microcontroller's EEPROM. Here it is a small fixed-layout binary file,
// validated by a format tag so that bytes written by anything else fall back
// to defaults.
package eeprom

import (
	"bytes"
	"encoding/binary"

	"github.com/dehne/escapement/internal/escapement"
)

// block is the on-disk layout. Fixed-size fields only, little-endian.
type block struct {
	Tag         uint16
	Compensated uint8
	_           uint8 // pad
	Bias        int32
	ManualAdj   int32
	Counts      [escapement.NumBuckets]int32
	Means       [escapement.NumBuckets]int64
}

// encode serializes a settings block, stamping the format tag.
func encode(s escapement.Settings) []byte {
	var b block
	b.Tag = escapement.SettingsTag
	if s.Compensated {
		b.Compensated = 1
	}
	b.Bias = s.Bias
	b.ManualAdj = s.ManualAdj
	for i, e := range s.Table {
		b.Counts[i] = e.Count
		b.Means[i] = e.Mean
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &b)
	return buf.Bytes()
}

// decode parses a settings block. Returns false when the bytes are short,
// oversized, or carry the wrong format tag.
func decode(data []byte) (escapement.Settings, bool) {
	var b block
	if len(data) != binary.Size(&b) {
		return escapement.Settings{}, false
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &b); err != nil {
		return escapement.Settings{}, false
	}
	if b.Tag != escapement.SettingsTag {
		return escapement.Settings{}, false
	}
	var s escapement.Settings
	s.Compensated = b.Compensated != 0
	s.Bias = b.Bias
	s.ManualAdj = b.ManualAdj
	for i := range s.Table {
		s.Table[i] = escapement.CalibrationEntry{Mean: b.Means[i], Count: b.Counts[i]}
	}
	return s, true
}
