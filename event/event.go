/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import (
	"context"
	"fmt"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
	"github.com/chainguard-dev/clog"
)

// Trigger describes the trigger a decision is being made for.
type Trigger struct {
	ID         string
	Repository remote.Repository
}

// Context is the input to a rule for a single entity in a single pass.
// It is built fresh for every entity and never persisted.
type Context[T entity.Snapshot] struct {
	// Remote is the entity as currently observed on the hosting service.
	Remote T
	// Local is the last reconciled state of the entity, or nil if the entity
	// has never been seen.
	Local *T

	Trigger     Trigger
	Diagnostics diag.Sink
	// Client gives rules that need more than the snapshot (e.g. commit
	// messages) access to the hosting service.
	Client remote.Client
}

// Printf writes to the context's diagnostic sink, if any.
func (c *Context[T]) Printf(format string, args ...any) {
	if c.Diagnostics != nil {
		c.Diagnostics.Printf(format, args...)
	}
}

// Rule is a single build-decision rule for entities of type T.
type Rule[T entity.Snapshot] interface {
	// Name identifies the rule in logs and diagnostics.
	Name() string
	// Check decides from a reconciliation context. It returns nil for no opinion.
	Check(ctx context.Context, ec *Context[T]) (*cause.Cause, error)
	// CheckHook decides from a push notification. It returns nil for no opinion.
	CheckHook(ctx context.Context, p *Payload) (*cause.Cause, error)
}

// Outcome describes how a chain evaluation ended.
type Outcome int

const (
	// NoOpinion means every rule abstained.
	NoOpinion Outcome = iota
	// Decided means a rule returned a Cause.
	Decided
	// Errored means a rule failed and its error became a skip Cause.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case NoOpinion:
		return "no_opinion"
	case Decided:
		return "decided"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Chain is an ordered list of rules evaluated first-decisive-wins.
// See the package documentation for the ordering contract.
type Chain[T entity.Snapshot] []Rule[T]

// Evaluate runs Check on each rule in order and returns the first non-nil
// Cause. A rule error becomes a skip Cause with the error text as its
// description. If every rule abstains the result is nil.
func (c Chain[T]) Evaluate(ctx context.Context, ec *Context[T]) (*cause.Cause, Outcome) {
	return c.evaluate(ctx, ec.Remote.Key(), func(ctx context.Context, r Rule[T]) (*cause.Cause, error) {
		return r.Check(ctx, ec)
	})
}

// EvaluateHook runs CheckHook on each rule in order with the same semantics
// as Evaluate.
func (c Chain[T]) EvaluateHook(ctx context.Context, p *Payload) (*cause.Cause, Outcome) {
	return c.evaluate(ctx, p.Key(), func(ctx context.Context, r Rule[T]) (*cause.Cause, error) {
		return r.CheckHook(ctx, p)
	})
}

func (c Chain[T]) evaluate(ctx context.Context, key string, check func(context.Context, Rule[T]) (*cause.Cause, error)) (*cause.Cause, Outcome) {
	log := clog.FromContext(ctx).With("entity", key)

	for _, rule := range c {
		result, err := safeCheck(ctx, rule, check)
		if err != nil {
			log.With("rule", rule.Name()).With("error", err.Error()).Warn("Rule failed, skipping entity")
			return cause.Skip(err.Error()), Errored
		}
		if result == nil {
			continue
		}
		log.With("rule", rule.Name()).With("skip", result.Skip()).Debug("Rule decided")
		return result, Decided
	}
	return nil, NoOpinion
}

// safeCheck converts a panicking rule into an error so that it fails closed.
func safeCheck[T entity.Snapshot](ctx context.Context, rule Rule[T], check func(context.Context, Rule[T]) (*cause.Cause, error)) (result *cause.Cause, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("rule %s panicked: %v", rule.Name(), r)
		}
	}()
	return check(ctx, rule)
}

// Names returns the names of the rules in order.
func (c Chain[T]) Names() []string {
	names := make([]string, 0, len(c))
	for _, r := range c {
		names = append(names, r.Name())
	}
	return names
}
