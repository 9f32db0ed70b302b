// Package storage persists account and room documents.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raykavin/alphabot/pkg/core"
)

// Document is a decoded JSON object.
type Document = map[string]any

// DocumentStore is a path addressed JSON document store.
type DocumentStore interface {
	// Get returns the document at path or an error wrapping core.ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)
	// Set writes doc at path. With merge the document is applied as a merge
	// patch: objects merge recursively, null deletes a key, anything else
	// replaces.
	Set(ctx context.Context, path string, doc any, merge bool) error
	Close() error
}

// Lister is implemented by stores that can enumerate their paths.
type Lister interface {
	Paths(ctx context.Context, prefix string) ([]string, error)
}

// Merge applies patch onto dst and returns the result.
func Merge(dst, patch Document) Document {
	if dst == nil {
		dst = make(Document, len(patch))
	}
	for key, value := range patch {
		if value == nil {
			delete(dst, key)
			continue
		}
		if sub, ok := value.(map[string]any); ok {
			current, _ := dst[key].(map[string]any)
			dst[key] = Merge(current, sub)
			continue
		}
		dst[key] = value
	}
	return dst
}

// ToDocument converts a struct or map into a Document through JSON so nested
// structs become objects that merge.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must be an object: %w", err)
	}
	return doc, nil
}

// Decode fills out from doc.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func notFound(path string) error {
	return fmt.Errorf("%w: document %s", core.ErrNotFound, path)
}

func apply(current Document, doc any, merge bool) (Document, error) {
	next, err := ToDocument(doc)
	if err != nil {
		return nil, err
	}
	if !merge {
		return next, nil
	}
	return Merge(current, next), nil
}
