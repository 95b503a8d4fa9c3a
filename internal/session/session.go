// Package session persists the guest credential used to query Twitter's
// unauthenticated endpoints. A missing session is a normal state: stores
// report it as (nil, nil), not as an error.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Token is the opaque guest credential negotiated with the backend.
type Token struct {
	GuestToken string    `json:"guest_token"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store interface {
	// Load returns the persisted token, or (nil, nil) when none exists.
	Load() (*Token, error)
	// Save overwrites the persisted token.
	Save(token *Token) error
	// Invalidate deletes the persisted token. Deleting an already-absent
	// token is not an error; any other failure is.
	Invalidate() error
}

// FileStore keeps the session artifact as a JSON file on disk.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &token, nil
}

func (s *FileStore) Save(token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// Write-then-rename keeps concurrent readers from ever seeing a
	// half-written artifact.
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Invalidate() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}
