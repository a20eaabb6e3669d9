/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store kept as a single JSON object on disk. Every write
// rewrites the file through a temporary file and a rename, so a crash leaves
// either the old or the new contents.
//
// Nothing is cached: each operation reads the file, and each mutation holds
// an exclusive lock on path+".lock" across its read and write. Several
// processes may share a file, such as a running server and the forget
// command.
type File[T any] struct {
	path string

	mu sync.Mutex
}

var _ Store[int] = (*File[int])(nil)

// NewFile opens the store at path. An existing file must decode.
func NewFile[T any](path string) (*File[T], error) {
	f := &File[T]{path: path}
	if _, err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Get implements Store.
func (f *File[T]) Get(_ context.Context, key string) (T, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Put implements Store.
func (f *File[T]) Put(_ context.Context, key string, v T) error {
	return f.update(func(entries map[string]T) bool {
		entries[key] = v
		return true
	})
}

// Delete implements Store.
func (f *File[T]) Delete(_ context.Context, key string) error {
	return f.update(func(entries map[string]T) bool {
		if _, ok := entries[key]; !ok {
			return false
		}
		delete(entries, key)
		return true
	})
}

// Range implements Store.
func (f *File[T]) Range(_ context.Context, fn func(key string, v T) bool) error {
	f.mu.Lock()
	entries, err := f.load()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	for k, v := range entries {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// update applies fn to the current contents of the file and writes the
// result back when fn reports a change.
func (f *File[T]) update(fn func(map[string]T) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	unlock, err := lockFile(f.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if !fn(entries) {
		return nil
	}
	return f.flush(entries)
}

// load reads the file. A missing or empty file is an empty store.
func (f *File[T]) load() (map[string]T, error) {
	entries := make(map[string]T)
	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return entries, nil
	case err != nil:
		return nil, fmt.Errorf("reading state file %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", f.path, err)
	}
	return entries, nil
}

// flush writes entries to disk. Callers hold the file lock.
func (f *File[T]) flush(entries map[string]T) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("renaming state file to %s: %w", f.path, err)
	}

	success = true
	return nil
}
