package eeprom

import (
	"log"
	"os"
	"path/filepath"

	"github.com/dehne/escapement/internal/escapement"
)

// DefaultPath is where the daemon keeps the settings block.
const DefaultPath = "/var/lib/escapement/settings.bin"

// FileStore keeps the settings block in a file. Writes are atomic
// (write-to-temp then rename) so a power cut mid-write leaves the previous
// block intact; failures are logged, never surfaced, matching the
// store-is-all-or-nothing contract the controller relies on.
type FileStore struct {
	path string
}

// NewFileStore creates a store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and validates the settings block. Any problem — missing file,
// truncation, wrong tag — reads as "no valid block".
func (s *FileStore) Load() (escapement.Settings, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("eeprom: read %s: %v", s.path, err)
		}
		return escapement.Settings{}, false
	}
	set, ok := decode(data)
	if !ok {
		log.Printf("eeprom: %s is not a valid settings block, using defaults", s.path)
	}
	return set, ok
}

// Save writes the settings block synchronously.
func (s *FileStore) Save(set escapement.Settings) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Printf("eeprom: mkdir for %s: %v", s.path, err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encode(set), 0o644); err != nil {
		log.Printf("eeprom: write %s: %v", tmp, err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Printf("eeprom: rename %s: %v", tmp, err)
	}
}
