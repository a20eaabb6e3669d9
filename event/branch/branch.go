/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package branch provides build-decision rules for branches.
package branch

import (
	"context"
	"fmt"
	"regexp"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
)

// Rule is a branch rule.
type Rule = event.Rule[entity.Branch]

var (
	_ Rule = Created{}
	_ Rule = HashChanged{}
	_ Rule = (*CommitMessage)(nil)
)

func buildCause(b entity.Branch, desc string) *cause.Cause {
	return cause.New(desc, cause.WithHeadSHA(b.SHA), cause.WithTitle(b.Name))
}

// Created requests a build for a branch seen for the first time.
type Created struct{}

// Name implements event.Rule.
func (Created) Name() string { return "branch-created" }

// Check implements event.Rule.
func (Created) Check(_ context.Context, ec *event.Context[entity.Branch]) (*cause.Cause, error) {
	if ec.Local != nil {
		return nil, nil
	}
	ec.Printf("%s: new branch %s at %s", ec.Trigger.ID, ec.Remote.Name, ec.Remote.SHA)
	return buildCause(ec.Remote, "Branch created"), nil
}

// CheckHook implements event.Rule.
func (Created) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	if p.Branch == nil || p.Push == nil || !p.Push.Created {
		return nil, nil
	}
	return buildCause(*p.Branch, "Branch created"), nil
}

// HashChanged requests a build when a known branch moved to a new commit.
type HashChanged struct{}

// Name implements event.Rule.
func (HashChanged) Name() string { return "branch-hash-changed" }

// Check implements event.Rule.
func (HashChanged) Check(_ context.Context, ec *event.Context[entity.Branch]) (*cause.Cause, error) {
	if ec.Local == nil || ec.Local.SHA == ec.Remote.SHA {
		return nil, nil
	}
	ec.Printf("%s: branch %s moved %s -> %s", ec.Trigger.ID, ec.Remote.Name, ec.Local.SHA, ec.Remote.SHA)
	return buildCause(ec.Remote, "Branch hash changed"), nil
}

// CheckHook implements event.Rule.
func (HashChanged) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	if p.Branch == nil || p.Push == nil || p.Push.Created || p.Push.Deleted {
		return nil, nil
	}
	if p.Push.Before == p.Push.After {
		return nil, nil
	}
	return buildCause(*p.Branch, "Branch hash changed"), nil
}

// CommitMessage matches the messages of the commits new to a branch against
// Pattern. On a match it returns a skip Cause if Exclude is set and a build
// Cause otherwise. Without a match it has no opinion.
type CommitMessage struct {
	Pattern *regexp.Regexp
	Exclude bool
}

// Name implements event.Rule.
func (*CommitMessage) Name() string { return "branch-commit-message" }

// Check implements event.Rule.
func (r *CommitMessage) Check(ctx context.Context, ec *event.Context[entity.Branch]) (*cause.Cause, error) {
	if ec.Local != nil && ec.Local.SHA == ec.Remote.SHA {
		return nil, nil
	}

	var messages []string
	if ec.Local == nil {
		// A new branch has no base to compare against; look at its head only.
		commits, err := ec.Client.CompareCommits(ctx, ec.Trigger.Repository, "", ec.Remote.SHA)
		if err != nil {
			return nil, fmt.Errorf("fetching head commit of %s: %w", ec.Remote.Name, err)
		}
		if n := len(commits); n > 0 {
			messages = append(messages, commits[n-1].Message)
		}
	} else {
		commits, err := ec.Client.CompareCommits(ctx, ec.Trigger.Repository, ec.Local.SHA, ec.Remote.SHA)
		if err != nil {
			return nil, fmt.Errorf("comparing %s...%s: %w", ec.Local.SHA, ec.Remote.SHA, err)
		}
		for _, c := range commits {
			messages = append(messages, c.Message)
		}
	}

	return r.decide(ec.Remote, messages, ec.Printf), nil
}

// CheckHook implements event.Rule.
func (r *CommitMessage) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	if p.Branch == nil || p.Push == nil || p.Push.Deleted {
		return nil, nil
	}
	return r.decide(*p.Branch, p.Push.Messages, func(string, ...any) {}), nil
}

func (r *CommitMessage) decide(b entity.Branch, messages []string, printf func(string, ...any)) *cause.Cause {
	for _, msg := range messages {
		loc := r.Pattern.FindStringIndex(msg)
		if loc == nil {
			continue
		}
		match := msg[loc[0]:loc[1]]
		if r.Exclude {
			printf("branch %s: commit message matches %q, skipping", b.Name, r.Pattern.String())
			return cause.Skipf("Commit message matches %q", r.Pattern.String()).
				With(cause.WithHeadSHA(b.SHA), cause.WithTitle(b.Name), cause.WithMatch(match))
		}
		printf("branch %s: commit message matches %q", b.Name, r.Pattern.String())
		return buildCause(b, fmt.Sprintf("Commit message matches %q", r.Pattern.String())).With(cause.WithMatch(match))
	}
	return nil
}
