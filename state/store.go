/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package state persists the last reconciled snapshot of every entity a
// trigger has observed.
//
// A Store is owned by the reconciler of a single trigger. Anything else that
// wants to look at the contents, such as a status display, takes a detached
// copy with Snapshot.
package state

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Store is a keyed mapping from entity identity to its last reconciled state.
// A missing key means the entity was never seen. Implementations are safe for
// concurrent use.
type Store[T any] interface {
	// Get returns the state recorded for key and whether it exists.
	Get(ctx context.Context, key string) (T, bool, error)
	// Put records v for key, replacing any previous value.
	Put(ctx context.Context, key string, v T) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Range calls fn for each entry until fn returns false.
	Range(ctx context.Context, fn func(key string, v T) bool) error
}

// Snapshot returns a copy of every entry in s.
func Snapshot[T any](ctx context.Context, s Store[T]) (map[string]T, error) {
	out := make(map[string]T)
	if err := s.Range(ctx, func(key string, v T) bool {
		out[key] = v
		return true
	}); err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	return out, nil
}

// Memory is an in-process Store.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

var _ Store[int] = (*Memory[int])(nil)

// NewMemory returns an empty in-process Store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]T)}
}

// Get implements Store.
func (m *Memory[T]) Get(_ context.Context, key string) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Put implements Store.
func (m *Memory[T]) Put(_ context.Context, key string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = v
	return nil
}

// Delete implements Store.
func (m *Memory[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Range implements Store. fn sees a copy, so it may call back into m.
func (m *Memory[T]) Range(_ context.Context, fn func(key string, v T) bool) error {
	m.mu.RLock()
	entries := maps.Clone(m.entries)
	m.mu.RUnlock()
	for k, v := range entries {
		if !fn(k, v) {
			break
		}
	}
	return nil
}
