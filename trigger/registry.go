/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"chainguard.dev/buildtrigger/diag"
	"github.com/chainguard-dev/clog"
)

// Registry holds the configured triggers.
type Registry struct {
	mu       sync.RWMutex
	triggers []*Trigger
	errors   *diag.Errors
}

// NewRegistry returns a registry holding triggers. Resolution failures are
// recorded in errs, which may be nil.
func NewRegistry(errs *diag.Errors, triggers ...*Trigger) *Registry {
	return &Registry{triggers: triggers, errors: errs}
}

// Add registers t. IDs must be unique.
func (r *Registry) Add(t *Trigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.triggers, func(o *Trigger) bool { return o.ID == t.ID }) {
		return fmt.Errorf("duplicate trigger id %q", t.ID)
	}
	r.triggers = append(r.triggers, t)
	return nil
}

// All returns the registered triggers in registration order.
func (r *Registry) All() []*Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.triggers)
}

// Get returns the trigger with the given ID.
func (r *Registry) Get(id string) (*Trigger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.triggers {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Resolve returns the triggers bound to the repository named fullName
// ("owner/name") on host. An empty host matches any trigger host. A trigger whose repository reference cannot be parsed is
// logged and left out; it does not affect the other triggers.
func (r *Registry) Resolve(ctx context.Context, host, fullName string) []*Trigger {
	var out []*Trigger
	for _, t := range r.All() {
		repo, err := t.Repository()
		if err != nil {
			clog.FromContext(ctx).With("trigger", t.ID, "repository", fullName).
				Warnf("skipping trigger with unresolvable repository: %v", err)
			if r.errors != nil {
				r.errors.Set(t.ID, diag.ErrorConfig, "", err)
			}
			continue
		}
		if r.errors != nil {
			r.errors.Clear(t.ID, diag.ErrorConfig, "")
		}
		if repo.Matches(host, fullName) {
			out = append(out, t)
		}
	}
	return out
}
