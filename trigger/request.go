/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"fmt"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
	"github.com/google/uuid"
)

// Request asks the build system to start a build.
type Request struct {
	// ID correlates the request across logs.
	ID         string
	TriggerID  string
	Repository remote.Repository
	Kind       entity.Kind
	// Key identifies the entity: branch name, pull request number or tag name.
	Key   string
	Cause *cause.Cause
}

// NewRequest constructs a Request with a fresh ID.
func NewRequest(triggerID string, repo remote.Repository, kind entity.Kind, key string, c *cause.Cause) Request {
	return Request{
		ID:         uuid.NewString(),
		TriggerID:  triggerID,
		Repository: repo,
		Kind:       kind,
		Key:        key,
		Cause:      c,
	}
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %s/%s: %s", r.ID, r.TriggerID, r.Kind, r.Key, r.Cause)
}
