// Package capture runs the local MITM listener that lifts the one-time
// wx.login code off the mini-program's bootstrap request: an intercepting
// proxy, the interception rule, the handoff file, and the system-proxy guard
// that keeps traffic flowing through the listener while the user restarts
// the mini-program.
package capture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Record is the captured one-time code plus its capture time as unix seconds.
// The file layout matches what the interception rule writes, so an operator
// can inspect or delete it by hand.
type Record struct {
	Code string  `json:"code"`
	TS   float64 `json:"ts"`
}

// Store persists the captured code through a single JSON handoff file. The
// proxy process writes it, the waiting workflow polls it.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Put atomically records a freshly captured code.
func (s *Store) Put(code string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(Record{Code: code, TS: float64(time.Now().UnixMilli()) / 1000}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Get returns the stored record, or nil when no usable code is available
// yet. A missing or corrupt file is "not yet", not an error, because the
// poller keeps going either way.
func (s *Store) Get() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	if rec.Code == "" {
		return nil, nil
	}
	return &rec, nil
}

// Remove deletes a stale handoff file. Codes are single-use, so every
// capture run starts from a clean slate.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
