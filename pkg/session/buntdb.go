package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/tidwall/buntdb"
)

const sessionKey = "session:current"

// BuntStore keeps the session in a BuntDB file, convenient when the
// same database already holds other job state.
type BuntStore struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory session store
func FromMemory() (*BuntStore, error) {
	return NewBuntStore(":memory:")
}

// FromFile creates a file-backed session store
func FromFile(file string) (*BuntStore, error) {
	return NewBuntStore(file)
}

// NewBuntStore opens the backing database
func NewBuntStore(sourceFile string) (*BuntStore, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &BuntStore{db: db}, nil
}

// Save stores the session, replacing any previous one.
func (b *BuntStore) Save(session *core.Session) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if _, _, err := tx.Set(sessionKey, string(content), nil); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}
		return nil
	})
}

// Load retrieves the stored session, ErrNoSession when absent.
func (b *BuntStore) Load() (*core.Session, error) {
	var session core.Session

	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(sessionKey)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &session)
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &session, nil
}

// Clear removes the stored session.
func (b *BuntStore) Clear() error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(sessionKey)
		return err
	})
	if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close releases the backing database.
func (b *BuntStore) Close() error {
	return b.db.Close()
}
