/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"chainguard.dev/buildtrigger/event/branch"
	"chainguard.dev/buildtrigger/reconciler"
	"chainguard.dev/buildtrigger/remote/remotetest"
	"chainguard.dev/buildtrigger/retry"
	"chainguard.dev/buildtrigger/state"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	reqs []trigger.Request
}

func (c *collector) Enqueue(_ context.Context, req trigger.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

func newReconciler(fake *remotetest.Fake) *reconciler.Reconciler {
	tr := &trigger.Trigger{
		ID:            "t1",
		RepositoryURL: "org/repo",
		Branches: &trigger.Config[entity.Branch]{
			Chain: event.Chain[entity.Branch]{branch.Created{}, branch.HashChanged{}},
			Store: state.NewMemory[entity.Branch](),
		},
	}
	return reconciler.New(tr, fake, reconciler.WithRetry(retry.Config{Retries: 1}))
}

func TestRunPollsAndEnqueues(t *testing.T) {
	fake := &remotetest.Fake{Branches: []entity.Branch{{Name: "main", SHA: "sha1"}}}
	out := &collector{}
	s := New(out)
	s.Add(newReconciler(fake), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return out.count() == 1 }, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return fake.Calls("ListBranches") >= 3 }, 5*time.Second, time.Millisecond)

	fake.SetBranches(entity.Branch{Name: "main", SHA: "sha2"})
	require.Eventually(t, func() bool { return out.count() == 2 }, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunSkipsBusyTrigger(t *testing.T) {
	fake := &remotetest.Fake{Branches: []entity.Branch{{Name: "main", SHA: "sha1"}}}
	r := newReconciler(fake)
	s := New(&collector{})
	s.Add(r, time.Millisecond)

	r.Trigger().Lock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if n := fake.Calls("ListBranches"); n != 0 {
		t.Errorf("ListBranches calls while busy = %d, want 0", n)
	}
	r.Trigger().Unlock()
	require.Eventually(t, func() bool { return fake.Calls("ListBranches") > 0 }, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestAddIgnoresDisabledInterval(t *testing.T) {
	s := New(&collector{})
	s.Add(newReconciler(&remotetest.Fake{}), 0)
	if len(s.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(s.entries))
	}
	// With nothing to poll Run returns immediately.
	require.NoError(t, s.Run(context.Background()))
}
