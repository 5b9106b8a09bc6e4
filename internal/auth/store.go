package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenPair is the access/refresh credential pair for the backend API.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenStore is the persistence port for the token pair. The pair is the
// only shared mutable state between components, so writes follow a
// set-both-or-clear-both discipline: a reader must never observe a
// half-written pair.
type TokenStore interface {
	Load() (TokenPair, error)
	SaveAccess(access string) error
	Clear() error
}

// FileStore keeps the pair in a single JSON file. SaveAccess rewrites the
// whole pair via a temp file and rename so the file is always a complete
// pair; Clear removes the file, dropping both tokens at once.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (TokenPair, error) {
	var pair TokenPair
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return pair, nil
		}
		return pair, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("parse token file: %w", err)
	}
	return pair, nil
}

func (s *FileStore) SaveAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.load()
	if err != nil {
		return err
	}
	pair.Access = access

	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Save stores a fresh pair, e.g. after login.
func (s *FileStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear token file: %w", err)
	}
	return nil
}

// MemoryStore holds the pair in memory. Used by tests and by callers that
// manage credentials themselves.
type MemoryStore struct {
	mu   sync.Mutex
	pair TokenPair
}

func NewMemoryStore(pair TokenPair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

func (s *MemoryStore) Load() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

func (s *MemoryStore) SaveAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.Access = access
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	return nil
}
