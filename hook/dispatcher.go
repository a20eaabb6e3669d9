/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package hook turns push notifications into build requests without a full
// reconciliation pass.
//
// The Dispatcher resolves the triggers bound to the notified repository and
// runs the hook variant of each rule against the payload. It never touches
// the local state stores; the next poll reconciles whatever the hook path
// missed.
package hook

import (
	"context"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"chainguard.dev/buildtrigger/metrics"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/chainguard-dev/clog"
)

// Dispatcher evaluates push notifications against the registered triggers.
type Dispatcher struct {
	registry *trigger.Registry
}

// NewDispatcher returns a Dispatcher over the triggers in reg.
func NewDispatcher(reg *trigger.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Dispatch returns a request for every trigger bound to p's repository whose
// chain decides to build. Triggers with an unresolvable repository are
// skipped. Each trigger is locked while its chain runs, so hook evaluation
// never overlaps a poll of the same trigger.
func (d *Dispatcher) Dispatch(ctx context.Context, p *event.Payload) []trigger.Request {
	log := clog.FromContext(ctx).With("repository", p.Repository, "kind", p.Kind.String(), "action", p.Action)

	var reqs []trigger.Request
	for _, t := range d.registry.Resolve(ctx, p.Host, p.Repository) {
		if !t.Handles(p.Kind) {
			continue
		}
		c := evaluate(ctx, t, p)
		if c == nil || c.Skip() {
			continue
		}
		repo, err := t.Repository()
		if err != nil {
			continue
		}
		req := trigger.NewRequest(t.ID, repo, p.Kind, p.Key(), c)
		log.With("trigger", t.ID, "request", req.ID).Infof("Hook requests build of %s: %s", p.Key(), c.ShortDescription())
		metrics.RequestEmitted(t.ID, p.Kind.String(), "hook")
		reqs = append(reqs, req)
	}
	return reqs
}

func evaluate(ctx context.Context, t *trigger.Trigger, p *event.Payload) *cause.Cause {
	t.Lock()
	defer t.Unlock()

	switch p.Kind {
	case entity.KindBranch:
		return evaluateKind(ctx, t.Branches, p)
	case entity.KindPullRequest:
		return evaluateKind(ctx, t.PullRequests, p)
	case entity.KindTag:
		return evaluateKind(ctx, t.Tags, p)
	default:
		return nil
	}
}

func evaluateKind[T entity.Snapshot](ctx context.Context, cfg *trigger.Config[T], p *event.Payload) *cause.Cause {
	if cfg == nil || !trigger.AllowsHook(cfg.Filters, p) {
		return nil
	}
	c, _ := cfg.Chain.EvaluateHook(ctx, p)
	return c
}
