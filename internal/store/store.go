// Package store is the path-addressed document tree the app keeps all of its
// state in: menus, profiles, carts and notifications. Writers never coordinate;
// the last write to a field wins.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no document lives at a path.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidPath is returned for empty segments or reserved characters.
	ErrInvalidPath = errors.New("store: invalid path")
)

// Child is one document directly under a collection path.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Store is the remote document tree.
type Store interface {
	// Get reads the document at path once.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set replaces the document at path.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the document at path, creating it when absent.
	// A nil field value deletes that field.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Remove deletes the document at path and everything below it.
	Remove(ctx context.Context, path string) error
	// Children lists the documents directly under path, ordered by key.
	Children(ctx context.Context, path string) ([]Child, error)
	// Subscribe delivers a snapshot of the children of path now and after every change.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
}

// PushKey returns a new time-ordered key for a document in a collection.
func PushKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Decode unmarshals a document into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// DecodeChildren unmarshals every child into T, calling withKey so the caller can
// copy the store key into the value. Children that fail to decode are skipped.
func DecodeChildren[T any](children []Child, withKey func(v *T, key string)) []T {
	out := make([]T, 0, len(children))
	for _, c := range children {
		v, err := Decode[T](c.Value)
		if err != nil {
			continue
		}
		if withKey != nil {
			withKey(&v, c.Key)
		}
		out = append(out, v)
	}
	return out
}

// mergeFields applies a partial update to an existing JSON object.
func mergeFields(existing json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	for k, v := range fields {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	return json.Marshal(doc)
}

func encode(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}
