/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scheduler polls triggers on their configured intervals.
package scheduler

import (
	"context"
	"time"

	"chainguard.dev/buildtrigger/reconciler"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Enqueuer accepts build requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req trigger.Request) error
}

type entry struct {
	reconciler *reconciler.Reconciler
	interval   time.Duration
}

// Scheduler runs a polling loop per trigger. Every tick starts a pass in the
// background; a tick that finds the previous pass, or a hook dispatch, still
// holding the trigger is skipped.
type Scheduler struct {
	enqueuer Enqueuer
	entries  []entry
}

// New returns a Scheduler handing requests to enq.
func New(enq Enqueuer) *Scheduler {
	return &Scheduler{enqueuer: enq}
}

// Add polls r every interval once Run is called. Non-positive intervals are
// ignored.
func (s *Scheduler) Add(r *reconciler.Reconciler, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.entries = append(s.entries, entry{reconciler: r, interval: interval})
}

// Run polls until ctx is cancelled and the passes in flight have returned.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, e := range s.entries {
		g.Go(func() error {
			s.loop(ctx, g, e)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, g *errgroup.Group, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	g.Go(func() error { s.poll(ctx, e); return nil })
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Go(func() error { s.poll(ctx, e); return nil })
		}
	}
}

func (s *Scheduler) poll(ctx context.Context, e entry) {
	id := e.reconciler.Trigger().ID
	log := clog.FromContext(ctx).With("trigger", id)

	reqs, ran, err := e.reconciler.TryReconcile(ctx)
	if !ran {
		log.Info("Previous pass still running, skipping tick")
		return
	}
	if err != nil {
		log.Errorf("Pass failed: %v", err)
	}
	for _, req := range reqs {
		if err := s.enqueuer.Enqueue(ctx, req); err != nil {
			log.With("request", req.ID).Errorf("Failed to enqueue build: %v", err)
		}
	}
}
