/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reconciler

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"chainguard.dev/buildtrigger/metrics"
	"chainguard.dev/buildtrigger/remote"
	"chainguard.dev/buildtrigger/retry"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/chainguard-dev/clog"
)

// Reconciler runs reconciliation passes for one trigger.
type Reconciler struct {
	trigger *trigger.Trigger
	client  remote.Client

	retry       retry.Config
	diagnostics diag.Sink
	errors      *diag.Errors
	metrics     *metrics.Reconciler
}

// New constructs a Reconciler for t. Every call made through client is
// retried according to the configured retry policy.
func New(t *trigger.Trigger, client remote.Client, opts ...Option) *Reconciler {
	r := &Reconciler{
		trigger: t,
		retry:   retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.errors == nil {
		r.errors = diag.NewErrors()
	}
	if r.metrics == nil {
		r.metrics = metrics.NewReconciler()
	}
	r.client = remote.Retrying(client, r.retry)
	return r
}

// Trigger returns the trigger this reconciler serves.
func (r *Reconciler) Trigger() *trigger.Trigger { return r.trigger }

// Client returns the retrying client used for remote calls.
func (r *Reconciler) Client() remote.Client { return r.client }

// Errors returns the error surface passes record into.
func (r *Reconciler) Errors() *diag.Errors { return r.errors }

// Reconcile runs a pass for one entity kind, waiting for the trigger lock.
func (r *Reconciler) Reconcile(ctx context.Context, kind entity.Kind) ([]trigger.Request, error) {
	r.trigger.Lock()
	defer r.trigger.Unlock()
	return r.reconcile(ctx, kind)
}

// ReconcileAll runs a pass for every configured kind, waiting for the
// trigger lock. A failing kind does not stop the others; the requests of the
// successful kinds are returned along with the joined errors.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]trigger.Request, error) {
	r.trigger.Lock()
	defer r.trigger.Unlock()
	return r.reconcileAll(ctx)
}

// TryReconcile is ReconcileAll that returns ran=false without doing anything
// when the trigger is busy.
func (r *Reconciler) TryReconcile(ctx context.Context) (reqs []trigger.Request, ran bool, err error) {
	if !r.trigger.TryLock() {
		return nil, false, nil
	}
	defer r.trigger.Unlock()
	reqs, err = r.reconcileAll(ctx)
	return reqs, true, err
}

// Forget removes the recorded state of one entity, so that the next pass
// sees it as new.
func (r *Reconciler) Forget(ctx context.Context, kind entity.Kind, key string) error {
	r.trigger.Lock()
	defer r.trigger.Unlock()

	var err error
	switch kind {
	case entity.KindBranch:
		err = forget(ctx, r.trigger.Branches, key)
	case entity.KindPullRequest:
		err = forget(ctx, r.trigger.PullRequests, key)
	case entity.KindTag:
		err = forget(ctx, r.trigger.Tags, key)
	default:
		return fmt.Errorf("unknown entity kind %v", kind)
	}
	if err != nil {
		return fmt.Errorf("trigger %s: forgetting %s %q: %w", r.trigger.ID, kind, key, err)
	}
	return nil
}

func forget[T entity.Snapshot](ctx context.Context, cfg *trigger.Config[T], key string) error {
	if cfg == nil {
		return errors.New("kind not configured")
	}
	return cfg.Store.Delete(ctx, key)
}

func (r *Reconciler) reconcileAll(ctx context.Context) ([]trigger.Request, error) {
	var (
		reqs []trigger.Request
		errs []error
	)
	for _, kind := range r.trigger.Kinds() {
		got, err := r.reconcile(ctx, kind)
		reqs = append(reqs, got...)
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return reqs, errors.Join(errs...)
}

// reconcile runs one pass. The caller holds the trigger lock.
func (r *Reconciler) reconcile(ctx context.Context, kind entity.Kind) ([]trigger.Request, error) {
	if !r.trigger.Handles(kind) {
		return nil, fmt.Errorf("trigger %s is not configured for %s", r.trigger.ID, kind)
	}
	repo, err := r.trigger.Repository()
	if err != nil {
		r.errors.Set(r.trigger.ID, diag.ErrorConfig, "", err)
		return nil, err
	}
	r.errors.Clear(r.trigger.ID, diag.ErrorConfig, "")

	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("trigger", r.trigger.ID, "kind", kind.String()))

	switch kind {
	case entity.KindBranch:
		return pass(ctx, r, kind, repo, r.trigger.Branches, r.client.ListBranches)
	case entity.KindPullRequest:
		return pass(ctx, r, kind, repo, r.trigger.PullRequests, r.client.ListPullRequests)
	case entity.KindTag:
		return pass(ctx, r, kind, repo, r.trigger.Tags, r.client.ListTags)
	default:
		return nil, fmt.Errorf("unknown entity kind %v", kind)
	}
}

func pass[T entity.Snapshot](
	ctx context.Context,
	r *Reconciler,
	kind entity.Kind,
	repo remote.Repository,
	cfg *trigger.Config[T],
	list func(context.Context, remote.Repository) ([]T, error),
) (_ []trigger.Request, err error) {
	id := r.trigger.ID
	ctx, end := r.metrics.StartPass(ctx, id, kind.String())
	defer func() { end(err) }()
	log := clog.FromContext(ctx)

	remotes, err := list(ctx, repo)
	if err != nil {
		r.errors.Set(id, diag.ErrorFetch, kind.String(), err)
		return nil, fmt.Errorf("trigger %s: listing %s entities of %s: %w", id, kind, repo, err)
	}
	r.errors.Clear(id, diag.ErrorFetch, kind.String())

	sink := r.diagnostics
	if sink == nil {
		sink = diag.Logger(ctx)
	}

	var (
		reqs      []trigger.Request
		storeErrs []error
	)
	for _, rem := range remotes {
		if err := ctx.Err(); err != nil {
			return reqs, err
		}
		key := rem.Key()

		ec := &event.Context[T]{
			Remote:      rem,
			Trigger:     event.Trigger{ID: id, Repository: repo},
			Diagnostics: sink,
			Client:      r.client,
		}
		local, ok, err := cfg.Store.Get(ctx, key)
		if err != nil {
			// Without the previous state the chain cannot tell new from unchanged.
			storeErrs = append(storeErrs, fmt.Errorf("reading %q: %w", key, err))
			continue
		}
		if ok {
			ec.Local = &local
		}

		var c *cause.Cause
		switch trigger.Apply(ctx, cfg.Filters, ec) {
		case trigger.Drop:
			continue
		case trigger.Evaluate:
			var outcome event.Outcome
			c, outcome = cfg.Chain.Evaluate(ctx, ec)
			r.metrics.RecordDecision(ctx, id, kind.String(), outcome.String())
		}

		if err := cfg.Store.Put(ctx, key, rem); err != nil {
			storeErrs = append(storeErrs, fmt.Errorf("writing %q: %w", key, err))
		}

		switch {
		case c == nil:
		case c.Skip():
			log.With("entity", key).Infof("Skipping build: %s", c.ShortDescription())
		default:
			req := trigger.NewRequest(id, repo, kind, key, c)
			log.With("entity", key, "request", req.ID).Infof("Requesting build of %s: %s", c.HeadSHA(), c.ShortDescription())
			metrics.RequestEmitted(id, kind.String(), "poll")
			reqs = append(reqs, req)
		}
	}

	if len(storeErrs) > 0 {
		err := errors.Join(storeErrs...)
		r.errors.Set(id, diag.ErrorStore, kind.String(), err)
		return reqs, fmt.Errorf("trigger %s: %s state: %w", id, kind, err)
	}
	r.errors.Clear(id, diag.ErrorStore, kind.String())
	return reqs, nil
}
