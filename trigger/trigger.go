/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package trigger defines a configured build trigger: the repository it
// watches, and for each entity kind the rule chain, filters and local state
// used to decide on builds.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"chainguard.dev/buildtrigger/remote"
	"chainguard.dev/buildtrigger/state"
)

// Config is the per-kind configuration of a trigger.
type Config[T entity.Snapshot] struct {
	// Chain is evaluated in order, first decisive rule wins.
	Chain event.Chain[T]
	// Filters run before the chain.
	Filters []Filter[T]
	// Store holds the last reconciled state of each entity. It is owned by
	// the trigger's reconciler.
	Store state.Store[T]
}

// Trigger is a configured build trigger for one repository.
//
// A Trigger serializes every pass and hook dispatch made on its behalf
// through its lock, so its stores see at most one writer at a time.
type Trigger struct {
	ID string
	// RepositoryURL is the configured repository reference, resolved with
	// remote.ParseRepository.
	RepositoryURL string
	// Interval is the polling period; zero disables polling.
	Interval time.Duration

	Branches     *Config[entity.Branch]
	PullRequests *Config[entity.PullRequest]
	Tags         *Config[entity.Tag]

	mu sync.Mutex
}

// Repository resolves the configured repository reference.
func (t *Trigger) Repository() (remote.Repository, error) {
	repo, err := remote.ParseRepository(t.RepositoryURL)
	if err != nil {
		return remote.Repository{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	return repo, nil
}

// Kinds returns the entity kinds the trigger is configured for.
func (t *Trigger) Kinds() []entity.Kind {
	var kinds []entity.Kind
	if t.Branches != nil {
		kinds = append(kinds, entity.KindBranch)
	}
	if t.PullRequests != nil {
		kinds = append(kinds, entity.KindPullRequest)
	}
	if t.Tags != nil {
		kinds = append(kinds, entity.KindTag)
	}
	return kinds
}

// Handles reports whether the trigger is configured for kind.
func (t *Trigger) Handles(kind entity.Kind) bool {
	switch kind {
	case entity.KindBranch:
		return t.Branches != nil
	case entity.KindPullRequest:
		return t.PullRequests != nil
	case entity.KindTag:
		return t.Tags != nil
	default:
		return false
	}
}

// Validate checks that the trigger is usable.
func (t *Trigger) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("trigger id is required"))
	}
	if t.Interval < 0 {
		errs = append(errs, fmt.Errorf("trigger %s: interval must not be negative", t.ID))
	}
	if len(t.Kinds()) == 0 {
		errs = append(errs, fmt.Errorf("trigger %s: no entity kinds configured", t.ID))
	}
	for _, missing := range []bool{
		t.Branches != nil && t.Branches.Store == nil,
		t.PullRequests != nil && t.PullRequests.Store == nil,
		t.Tags != nil && t.Tags.Store == nil,
	} {
		if missing {
			errs = append(errs, fmt.Errorf("trigger %s: every configured kind needs a store", t.ID))
			break
		}
	}
	return errors.Join(errs...)
}

// Lock waits for exclusive use of the trigger.
func (t *Trigger) Lock() { t.mu.Lock() }

// TryLock takes exclusive use of the trigger if it is free.
func (t *Trigger) TryLock() bool { return t.mu.TryLock() }

// Unlock releases the trigger.
func (t *Trigger) Unlock() { t.mu.Unlock() }

// Status is a read-only view of a trigger for status displays.
type Status struct {
	ID           string                        `json:"id"`
	Repository   string                        `json:"repository"`
	Branches     map[string]entity.Branch      `json:"branches,omitempty"`
	PullRequests map[string]entity.PullRequest `json:"pullRequests,omitempty"`
	Tags         map[string]entity.Tag         `json:"tags,omitempty"`
	Errors       []diag.Entry                  `json:"errors,omitempty"`
}

// Status returns detached copies of the trigger's stores and its recorded
// errors. It does not take the trigger lock.
func (t *Trigger) Status(ctx context.Context, errs *diag.Errors) (Status, error) {
	st := Status{ID: t.ID, Repository: t.RepositoryURL}
	var err error
	if t.Branches != nil {
		if st.Branches, err = state.Snapshot(ctx, t.Branches.Store); err != nil {
			return Status{}, fmt.Errorf("trigger %s branches: %w", t.ID, err)
		}
	}
	if t.PullRequests != nil {
		if st.PullRequests, err = state.Snapshot(ctx, t.PullRequests.Store); err != nil {
			return Status{}, fmt.Errorf("trigger %s pull requests: %w", t.ID, err)
		}
	}
	if t.Tags != nil {
		if st.Tags, err = state.Snapshot(ctx, t.Tags.Store); err != nil {
			return Status{}, fmt.Errorf("trigger %s tags: %w", t.ID, err)
		}
	}
	if errs != nil {
		st.Errors = errs.For(t.ID)
	}
	return st, nil
}
