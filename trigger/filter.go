/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"context"
	"fmt"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"github.com/bmatcuk/doublestar/v4"
)

// Verdict is the result of a pre-chain filter.
type Verdict int

const (
	// Evaluate passes the entity on to the rule chain.
	Evaluate Verdict = iota
	// Record skips the chain but still records the entity's state.
	Record
	// Drop ignores the entity for this pass: no chain, no state write.
	Drop
)

func (v Verdict) String() string {
	switch v {
	case Evaluate:
		return "evaluate"
	case Record:
		return "record"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Filter is a predicate evaluated before the rule chain.
type Filter[T entity.Snapshot] interface {
	Name() string
	Filter(ctx context.Context, ec *event.Context[T]) Verdict
}

// HookFilter is implemented by filters that also apply to push
// notifications. Filters without it are ignored on the hook path.
type HookFilter interface {
	AllowsHook(p *event.Payload) bool
}

// Apply runs filters in order and returns the most restrictive verdict.
func Apply[T entity.Snapshot](ctx context.Context, filters []Filter[T], ec *event.Context[T]) Verdict {
	verdict := Evaluate
	for _, f := range filters {
		if v := f.Filter(ctx, ec); v > verdict {
			ec.Printf("%s: %s %s by filter %s", ec.Trigger.ID, ec.Remote.Key(), v, f.Name())
			verdict = v
		}
		if verdict == Drop {
			break
		}
	}
	return verdict
}

// AllowsHook reports whether every hook-aware filter admits p.
func AllowsHook[T entity.Snapshot](filters []Filter[T], p *event.Payload) bool {
	for _, f := range filters {
		if hf, ok := f.(HookFilter); ok && !hf.AllowsHook(p) {
			return false
		}
	}
	return true
}

// SkipFirstRun records entities seen for the first time without running
// the chain, so that starting to watch a repository does not build every
// existing branch.
type SkipFirstRun[T entity.Snapshot] struct{}

// Name implements Filter.
func (SkipFirstRun[T]) Name() string { return "skip-first-run" }

// Filter implements Filter.
func (SkipFirstRun[T]) Filter(_ context.Context, ec *event.Context[T]) Verdict {
	if ec.Local == nil {
		return Record
	}
	return Evaluate
}

// Restriction drops entities whose subject does not match the include
// patterns or matches an exclude pattern. Patterns use doublestar syntax,
// e.g. "release/**". An empty include list admits everything.
type Restriction[T entity.Snapshot] struct {
	include []string
	exclude []string
	subject func(T) string
	hook    func(*event.Payload) (string, bool)
}

// NewRestriction matches patterns against the entity key: the branch or tag
// name.
func NewRestriction[T entity.Snapshot](include, exclude []string) (*Restriction[T], error) {
	return newRestriction(include, exclude, func(v T) string { return v.Key() }, payloadKey)
}

// NewTargetBranchRestriction matches patterns against the branch a pull
// request targets.
func NewTargetBranchRestriction(include, exclude []string) (*Restriction[entity.PullRequest], error) {
	return newRestriction(include, exclude, func(pr entity.PullRequest) string { return pr.Base },
		func(p *event.Payload) (string, bool) {
			if p.PullRequest == nil {
				return "", false
			}
			return p.PullRequest.Base, true
		})
}

func payloadKey(p *event.Payload) (string, bool) {
	k := p.Key()
	return k, k != ""
}

func newRestriction[T entity.Snapshot](include, exclude []string, subject func(T) string, hook func(*event.Payload) (string, bool)) (*Restriction[T], error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid restriction pattern %q", p)
		}
	}
	return &Restriction[T]{include: include, exclude: exclude, subject: subject, hook: hook}, nil
}

// Name implements Filter.
func (*Restriction[T]) Name() string { return "restriction" }

// Allows reports whether s passes the restriction.
func (r *Restriction[T]) Allows(s string) bool {
	for _, p := range r.exclude {
		if doublestar.MatchUnvalidated(p, s) {
			return false
		}
	}
	if len(r.include) == 0 {
		return true
	}
	for _, p := range r.include {
		if doublestar.MatchUnvalidated(p, s) {
			return true
		}
	}
	return false
}

// Filter implements Filter.
func (r *Restriction[T]) Filter(_ context.Context, ec *event.Context[T]) Verdict {
	if r.Allows(r.subject(ec.Remote)) {
		return Evaluate
	}
	return Drop
}

// AllowsHook implements HookFilter.
func (r *Restriction[T]) AllowsHook(p *event.Payload) bool {
	s, ok := r.hook(p)
	return !ok || r.Allows(s)
}

// SkipClosed drops closed pull requests unless they were open when last
// seen, so that only the transition to closed reaches the chain.
type SkipClosed struct{}

// Name implements Filter.
func (SkipClosed) Name() string { return "skip-closed" }

// Filter implements Filter.
func (SkipClosed) Filter(_ context.Context, ec *event.Context[entity.PullRequest]) Verdict {
	if ec.Remote.IsOpen() {
		return Evaluate
	}
	if ec.Local != nil && ec.Local.IsOpen() {
		return Evaluate
	}
	return Drop
}

var (
	_ Filter[entity.Branch]      = SkipFirstRun[entity.Branch]{}
	_ Filter[entity.Tag]         = (*Restriction[entity.Tag])(nil)
	_ Filter[entity.PullRequest] = SkipClosed{}
	_ HookFilter                 = (*Restriction[entity.Branch])(nil)
)
