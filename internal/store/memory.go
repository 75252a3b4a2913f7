package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	docs map[string]json.RawMessage
	mu   sync.RWMutex
	hub  Broadcaster
}

// NewMemoryStore creates an empty MemoryStore. A nil hub means an in-process LocalHub.
func NewMemoryStore(hub Broadcaster) *MemoryStore {
	if hub == nil {
		hub = NewLocalHub()
	}
	return &MemoryStore{
		docs: make(map[string]json.RawMessage),
		hub:  hub,
	}
}

// Get returns the document at path.
func (s *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return append(json.RawMessage(nil), doc...), nil
}

// Set replaces the document at path. A value that encodes to null removes it.
func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if string(raw) == "null" {
		return s.Remove(ctx, path)
	}

	s.mu.Lock()
	s.docs[path] = raw
	s.mu.Unlock()

	return publishChanges(ctx, s.hub, path)
}

// Update merges fields into the document at path.
func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	merged, err := mergeFields(s.docs[path], fields)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to merge %s: %w", path, err)
	}
	s.docs[path] = merged
	s.mu.Unlock()

	return publishChanges(ctx, s.hub, path)
}

// Remove deletes path and its subtree.
func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	removed := []string{path}
	for p := range s.docs {
		if isWithin(p, path) {
			delete(s.docs, p)
			if p != path {
				removed = append(removed, p)
			}
		}
	}
	s.mu.Unlock()

	return publishChanges(ctx, s.hub, removed...)
}

// Children lists the documents directly under path.
func (s *MemoryStore) Children(_ context.Context, path string) ([]Child, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make([]Child, 0)
	for p, doc := range s.docs {
		if Parent(p) == path {
			children = append(children, Child{Key: Key(p), Value: append(json.RawMessage(nil), doc...)})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Key < children[j].Key })
	return children, nil
}

// Subscribe streams snapshots of the children of path.
func (s *MemoryStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	return newSubscription(ctx, s.hub, path, func(ctx context.Context) ([]Child, error) {
		return s.Children(ctx, path)
	})
}
