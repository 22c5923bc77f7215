// Package session persists per-conversation state as JSON files.
//
// One file per session under a data directory. Concurrent requests for the
// same session serialize on a striped in-process mutex; file IO additionally
// takes an advisory flock so a second process cannot interleave writes.
package session

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
)

const (
	maxSessionIDLen  = 100
	defaultSessionID = "default"
	lockStripes      = 64
)

var sessionIDAllowed = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Sanitize reduces an untrusted session ID to a safe filename fragment:
// only [A-Za-z0-9_-] survives, capped at 100 characters. IDs that sanitize
// to nothing become "default". Path traversal attempts collapse to their
// alphanumeric residue and can never escape the data directory.
func Sanitize(id string) string {
	clean := sessionIDAllowed.ReplaceAllString(id, "")
	if len(clean) > maxSessionIDLen {
		clean = clean[:maxSessionIDLen]
	}
	if clean == "" {
		return defaultSessionID
	}
	return clean
}

// Store reads and writes session state files.
type Store struct {
	dir    string
	logger *slog.Logger
	locks  [lockStripes]chan struct{}
}

// NewStore creates the data directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{dir: dir, logger: logger}
	for i := range s.locks {
		s.locks[i] = make(chan struct{}, 1)
	}
	return s, nil
}

// Lock serializes access to one session. Different sessions map onto
// different stripes and proceed in parallel. Returns the unlock func.
func (s *Store) Lock(id string) func() {
	ch := s.locks[stripe(Sanitize(id))]
	ch <- struct{}{}
	return func() { <-ch }
}

// Load reads the session state. Missing or corrupt files yield a fresh
// inactive state rather than an error; a support chat should never refuse a
// user because its own state file rotted.
func (s *Store) Load(id string) *State {
	state := &State{}
	path := s.path(id)

	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err == nil {
		defer func() { _ = fl.Unlock() }()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		state.Normalize()
		return state
	}
	if err := json.Unmarshal(data, state); err != nil {
		s.logger.Warn("corrupt session file, starting fresh", "session", Sanitize(id), "error", err)
		state = &State{}
	}
	state.Normalize()
	return state
}

// Save writes the state atomically (temp file + rename) under flock.
func (s *Store) Save(id string, state *State) error {
	path := s.path(id)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err == nil {
		defer func() { _ = fl.Unlock() }()
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing session file: %w", err)
	}

	return nil
}

// Delete removes a session file and its flock companion so the data dir
// does not accumulate lock litter. Missing files are not an error.
func (s *Store) Delete(id string) error {
	path := s.path(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session file: %w", err)
	}
	if err := os.Remove(path + ".lock"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session lock file: %w", err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, Sanitize(id)+".json")
}

func stripe(sanitized string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sanitized))
	return int(h.Sum32() % lockStripes)
}
