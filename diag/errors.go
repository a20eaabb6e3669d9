/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package diag

import (
	"sync"
	"time"
)

// ErrorKind classifies a pass-level failure.
type ErrorKind string

const (
	// ErrorFetch is a remote fetch that failed after retries.
	ErrorFetch ErrorKind = "fetch"
	// ErrorStore is a local state store failure.
	ErrorStore ErrorKind = "store"
	// ErrorConfig is a trigger configuration that could not be resolved.
	ErrorConfig ErrorKind = "config"
)

// Entry is a recorded failure.
type Entry struct {
	Kind    ErrorKind `json:"kind"`
	Scope   string    `json:"scope,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type errorKey struct {
	trigger string
	kind    ErrorKind
	scope   string
}

// Errors is the pass-level error surface, keyed by trigger, error kind and an
// optional scope such as the entity kind. Recording replaces any previous
// entry for the same key. It is safe for concurrent use.
type Errors struct {
	mu      sync.RWMutex
	entries map[errorKey]Entry
	now     func() time.Time
}

// NewErrors constructs an empty error surface.
func NewErrors() *Errors {
	return &Errors{
		entries: make(map[errorKey]Entry),
		now:     time.Now,
	}
}

// Set records err for the trigger, replacing any prior entry of the same kind and scope.
func (e *Errors) Set(triggerID string, kind ErrorKind, scope string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[errorKey{trigger: triggerID, kind: kind, scope: scope}] = Entry{
		Kind:    kind,
		Scope:   scope,
		Message: err.Error(),
		Time:    e.now(),
	}
}

// Clear removes the entry for the trigger, kind and scope, if any.
func (e *Errors) Clear(triggerID string, kind ErrorKind, scope string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entries, errorKey{trigger: triggerID, kind: kind, scope: scope})
}

// For returns the entries recorded for a trigger.
func (e *Errors) For(triggerID string) []Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Entry
	for k, v := range e.entries {
		if k.trigger == triggerID {
			out = append(out, v)
		}
	}
	return out
}

// Snapshot returns a detached copy of every entry, grouped by trigger.
func (e *Errors) Snapshot() map[string][]Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]Entry)
	for k, v := range e.entries {
		out[k.trigger] = append(out[k.trigger], v)
	}
	return out
}
