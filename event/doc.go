/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package event defines build-decision rules ("events") and evaluates them
// as an ordered chain.
//
// A rule inspects a Context (the current remote entity, the last reconciled
// local entity if any, the trigger and a diagnostic sink) and returns either a
// *cause.Cause or nil. nil means "no opinion".
//
// # Ordering
//
// Chains are evaluated first-decisive-wins:
//
//  1. Rules run in the order they were configured.
//  2. A rule returning nil lets evaluation continue with the next rule.
//  3. A rule returning a non-nil Cause stops the chain. This holds for skip
//     and build causes alike, so a build rule placed before a skip rule
//     pre-empts it.
//  4. A rule returning an error stops the chain and is converted into a skip
//     Cause carrying the error text. A failing rule never lets a build through.
//  5. A chain in which every rule abstains (including an empty chain) yields
//     nil. The absence of an opinion never implies a build.
//
// # Hooks
//
// Every rule also has a CheckHook variant that decides directly from a push
// notification Payload, without consulting the remote service or the local
// state store. Chain.EvaluateHook applies the same ordering to those variants.
//
// # Basic Usage
//
//	chain := event.Chain[entity.Branch]{
//	    &branch.CommitMessage{Pattern: regexp.MustCompile(`\[ci skip\]`), Exclude: true},
//	    branch.HashChanged{},
//	}
//	c, outcome := chain.Evaluate(ctx, &event.Context[entity.Branch]{
//	    Remote: remoteBranch,
//	    Local:  localBranch, // nil when never seen
//	})
package event
