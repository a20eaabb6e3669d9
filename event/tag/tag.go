/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tag provides build-decision rules for tags.
package tag

import (
	"context"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
)

// Rule is a tag rule.
type Rule = event.Rule[entity.Tag]

var (
	_ Rule = Created{}
	_ Rule = HashChanged{}
)

func buildCause(t entity.Tag, desc string) *cause.Cause {
	return cause.New(desc, cause.WithHeadSHA(t.SHA), cause.WithTitle(t.Name))
}

// Created requests a build for a tag seen for the first time.
type Created struct{}

// Name implements event.Rule.
func (Created) Name() string { return "tag-created" }

// Check implements event.Rule.
func (Created) Check(_ context.Context, ec *event.Context[entity.Tag]) (*cause.Cause, error) {
	if ec.Local != nil {
		return nil, nil
	}
	ec.Printf("%s: new tag %s at %s", ec.Trigger.ID, ec.Remote.Name, ec.Remote.SHA)
	return buildCause(ec.Remote, "Tag created"), nil
}

// CheckHook implements event.Rule.
func (Created) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	if p.Tag == nil {
		return nil, nil
	}
	switch {
	case p.Action == event.ActionCreated:
	case p.Push != nil && p.Push.Created:
	default:
		return nil, nil
	}
	return buildCause(*p.Tag, "Tag created"), nil
}

// HashChanged requests a build when a known tag was moved to another commit.
type HashChanged struct{}

// Name implements event.Rule.
func (HashChanged) Name() string { return "tag-hash-changed" }

// Check implements event.Rule.
func (HashChanged) Check(_ context.Context, ec *event.Context[entity.Tag]) (*cause.Cause, error) {
	if ec.Local == nil || ec.Local.SHA == ec.Remote.SHA {
		return nil, nil
	}
	ec.Printf("%s: tag %s moved %s -> %s", ec.Trigger.ID, ec.Remote.Name, ec.Local.SHA, ec.Remote.SHA)
	return buildCause(ec.Remote, "Tag hash changed"), nil
}

// CheckHook implements event.Rule.
func (HashChanged) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	if p.Tag == nil || p.Push == nil || p.Push.Created || p.Push.Deleted || p.Push.Before == p.Push.After {
		return nil, nil
	}
	return buildCause(*p.Tag, "Tag hash changed"), nil
}
