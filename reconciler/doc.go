/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package reconciler runs reconciliation passes for a trigger.
//
// A pass handles one entity kind of one trigger:
//
//  1. List every remote entity of the kind. The client is retried on
//     transient failures; if the listing still fails the pass is aborted,
//     the failure is recorded in the error surface and the store is left
//     untouched.
//  2. Run the kind's filters. A dropped entity is ignored entirely, a
//     recorded one skips the rule chain.
//  3. Evaluate the rule chain against the remote entity and its last
//     reconciled state.
//  4. Write the remote entity to the store, whatever the chain decided, so
//     that the next pass diffs against the current head.
//  5. Return a trigger.Request for every entity whose Cause asks for a build.
//
// # Basic Usage
//
//	r := reconciler.New(t, githubClient,
//	    reconciler.WithErrors(errs),
//	    reconciler.WithRetry(retry.Config{Retries: 5, Delay: time.Second}),
//	)
//	requests, err := r.ReconcileAll(ctx)
//
// # Concurrency
//
// Passes hold the trigger lock. Reconcile and ReconcileAll wait for it;
// TryReconcile gives up immediately when another pass or hook dispatch is in
// flight, which is what timer-driven callers want.
package reconciler
