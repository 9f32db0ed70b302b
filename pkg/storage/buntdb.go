package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
)

// BuntStore keeps documents as JSON values in BuntDB.
type BuntStore struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory store
func FromMemory() (*BuntStore, error) {
	return NewBuntStore(":memory:")
}

// FromFile creates a file-based store
func FromFile(file string) (*BuntStore, error) {
	return NewBuntStore(file)
}

// NewBuntStore opens a BuntDB database.
func NewBuntStore(sourceFile string) (*BuntStore, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	return &BuntStore{db: db}, nil
}

func (b *BuntStore) Get(_ context.Context, path string) (Document, error) {
	var doc Document
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(path)
		if errors.Is(err, buntdb.ErrNotFound) {
			return notFound(path)
		}
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *BuntStore) Set(_ context.Context, path string, doc any, merge bool) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		var current Document
		value, err := tx.Get(path)
		switch {
		case errors.Is(err, buntdb.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to read document: %w", err)
		default:
			if err := json.Unmarshal([]byte(value), &current); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
		}

		next, err := apply(current, doc, merge)
		if err != nil {
			return err
		}
		content, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		if _, _, err = tx.Set(path, string(content), nil); err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
		return nil
	})
}

// Paths lists the stored paths starting with prefix.
func (b *BuntStore) Paths(_ context.Context, prefix string) ([]string, error) {
	var paths []string
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, _ string) bool {
			paths = append(paths, key)
			return true
		})
	})
	return paths, err
}

// Close closes the database connection
func (b *BuntStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
