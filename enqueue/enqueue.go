/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package enqueue hands build requests to the system that runs builds.
package enqueue

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"chainguard.dev/buildtrigger/remote"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/chainguard-dev/clog"
)

// Enqueuer accepts build requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req trigger.Request) error
}

// Func adapts a function to Enqueuer.
type Func func(ctx context.Context, req trigger.Request) error

// Enqueue implements Enqueuer.
func (f Func) Enqueue(ctx context.Context, req trigger.Request) error { return f(ctx, req) }

// Log is an Enqueuer that only logs requests with their parameters.
type Log struct{}

// Enqueue implements Enqueuer.
func (Log) Enqueue(ctx context.Context, req trigger.Request) error {
	params := Parameters(req)
	log := clog.FromContext(ctx).With("request", req.ID, "trigger", req.TriggerID, "kind", req.Kind.String(), "entity", req.Key)
	for _, k := range slices.Sorted(maps.Keys(params)) {
		log = log.With(k, params[k])
	}
	log.Info("Build requested")
	return nil
}

// Multi delivers every request to all of enqueuers, continuing past
// failures. The failures are joined.
func Multi(enqueuers ...Enqueuer) Enqueuer {
	return multi(enqueuers)
}

type multi []Enqueuer

func (m multi) Enqueue(ctx context.Context, req trigger.Request) error {
	var errs []error
	for _, e := range m {
		if err := e.Enqueue(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StatusContext is the commit status context used for pending statuses.
func StatusContext(triggerID string) string {
	return "buildtrigger/" + triggerID
}

// WithPendingStatus posts a pending commit status for the request's head
// commit through client before delegating to next. A failure to post is
// logged and does not prevent the build.
func WithPendingStatus(next Enqueuer, client remote.Client) Enqueuer {
	return Func(func(ctx context.Context, req trigger.Request) error {
		if sha := req.Cause.HeadSHA(); sha != "" {
			err := client.PostCommitStatus(ctx, req.Repository, sha, remote.Status{
				State:       remote.StatePending,
				TargetURL:   req.Cause.URL(),
				Description: req.Cause.ShortDescription(),
				Context:     StatusContext(req.TriggerID),
			})
			switch {
			case errors.Is(err, remote.ErrUnsupported):
			case err != nil:
				clog.FromContext(ctx).With("request", req.ID, "sha", sha).Warnf("Failed to post pending status: %v", err)
			}
		}
		if err := next.Enqueue(ctx, req); err != nil {
			return fmt.Errorf("enqueueing %s: %w", req.ID, err)
		}
		return nil
	})
}
