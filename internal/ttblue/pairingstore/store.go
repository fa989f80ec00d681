// Package pairingstore persists pairing codes on disk so an
// existing_pairing run can proceed unattended after the first interactive
// new_pairing run for a given device address. It never touches the BLE
// transport or protocol semantics.
package pairingstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store is a yaml-backed mapping of BLE address to pairing code.
type Store struct {
	Codes map[string]uint32 `yaml:"codes"`

	path string
}

// Open loads the store at path, treating a missing file as an empty store.
func Open(path string) (*Store, error) {
	s := &Store{Codes: map[string]uint32{}, path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pairingstore: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("pairingstore: parse %s: %w", path, err)
	}
	if s.Codes == nil {
		s.Codes = map[string]uint32{}
	}
	return s, nil
}

// DefaultPath returns ~/.config/ttble-sync/pairings.yaml, creating the
// containing directory if needed.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("pairingstore: resolve config dir: %w", err)
	}
	dir = filepath.Join(dir, "ttble-sync")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pairingstore: create config dir: %w", err)
	}
	return filepath.Join(dir, "pairings.yaml"), nil
}

// Lookup returns the saved code for address, if any.
func (s *Store) Lookup(address string) (uint32, bool) {
	code, ok := s.Codes[address]
	return code, ok
}

// Save records the code for address and persists the store to disk.
func (s *Store) Save(address string, code uint32) error {
	s.Codes[address] = code
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("pairingstore: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("pairingstore: write %s: %w", s.path, err)
	}
	return nil
}
