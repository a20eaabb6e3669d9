/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import (
	"strconv"

	"chainguard.dev/buildtrigger/entity"
)

// Hook actions, normalized across providers.
const (
	ActionPush           = "push"
	ActionCreated        = "created"
	ActionDeleted        = "deleted"
	ActionOpened         = "opened"
	ActionReopened       = "reopened"
	ActionClosed         = "closed"
	ActionSynchronize    = "synchronize"
	ActionEdited         = "edited"
	ActionLabeled        = "labeled"
	ActionUnlabeled      = "unlabeled"
	ActionCommentCreated = "comment_created"
)

// Push describes a ref update delivered by a push notification.
type Push struct {
	Ref string
	// Before and After are the old and new commit; entity.ZeroSHA marks a
	// created or deleted ref.
	Before   string
	After    string
	Created  bool
	Deleted  bool
	Messages []string
}

// Payload is a provider-neutral push notification.
type Payload struct {
	Kind   entity.Kind
	Action string
	// Repository is the "owner/name" the notification is about.
	Repository string
	// Host is the hosting service the notification came from, if known.
	Host   string
	Sender string

	// Exactly one of Branch, PullRequest and Tag is set, matching Kind.
	Branch      *entity.Branch
	PullRequest *entity.PullRequest
	Tag         *entity.Tag

	Push *Push
	// Comment is the comment body for comment notifications.
	Comment string
	// Label is the label added or removed for label notifications.
	Label string

	// Raw is the provider's decoded event, passed through opaquely.
	Raw any
}

// Key returns the identity of the entity the payload is about.
func (p *Payload) Key() string {
	switch {
	case p.Branch != nil:
		return p.Branch.Key()
	case p.PullRequest != nil:
		return strconv.Itoa(p.PullRequest.Number)
	case p.Tag != nil:
		return p.Tag.Key()
	default:
		return ""
	}
}
