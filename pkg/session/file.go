// Package session persists broker sessions between process runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dhanvan/kitefeed/pkg/core"
)

// ErrNoSession is returned when no session has been stored yet.
var ErrNoSession = errors.New("no stored session")

// FileStore keeps the session as a JSON token file on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given token file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the session to the token file. The file is created with
// owner-only permissions since it holds a live access token.
func (f *FileStore) Save(session *core.Session) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	content, err := json.MarshalIndent(session, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(f.path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// Load reads the stored session, ErrNoSession when the file is absent.
func (f *FileStore) Load() (*core.Session, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal(content, &session); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &session, nil
}

// Clear removes the token file.
func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
