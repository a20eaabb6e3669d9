/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tag

import (
	"context"
	"testing"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
)

func TestCheck(t *testing.T) {
	v1 := entity.Tag{Name: "v1.0.0", SHA: "sha1"}
	moved := entity.Tag{Name: "v1.0.0", SHA: "sha2"}

	tests := []struct {
		name    string
		rule    Rule
		remote  entity.Tag
		local   *entity.Tag
		wantNil bool
	}{
		{name: "created", rule: Created{}, remote: v1},
		{name: "created known", rule: Created{}, remote: v1, local: &v1, wantNil: true},
		{name: "moved", rule: HashChanged{}, remote: moved, local: &v1},
		{name: "unchanged", rule: HashChanged{}, remote: v1, local: &v1, wantNil: true},
		{name: "hash changed new", rule: HashChanged{}, remote: v1, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Check(context.Background(), &event.Context[entity.Tag]{
				Remote: tt.remote,
				Local:  tt.local,
			})
			if err != nil {
				t.Fatalf("Check() = %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("Check() = %v, wantNil %v", got, tt.wantNil)
			}
			if got != nil && (got.Skip() || got.HeadSHA() != tt.remote.SHA || got.Title() != tt.remote.Name) {
				t.Errorf("Check() = %v, want build of %s at %s", got, tt.remote.Name, tt.remote.SHA)
			}
		})
	}
}

func TestCheckHook(t *testing.T) {
	tag := &entity.Tag{Name: "v1.0.0", SHA: "sha2"}
	tests := []struct {
		name    string
		rule    Rule
		payload *event.Payload
		wantNil bool
	}{
		{name: "create event", rule: Created{}, payload: &event.Payload{Action: event.ActionCreated, Tag: tag}},
		{name: "push created", rule: Created{}, payload: &event.Payload{Action: event.ActionPush, Tag: tag, Push: &event.Push{Created: true}}},
		{name: "push moved", rule: Created{}, payload: &event.Payload{Action: event.ActionPush, Tag: tag, Push: &event.Push{Before: "sha1", After: "sha2"}}, wantNil: true},
		{name: "force moved", rule: HashChanged{}, payload: &event.Payload{Action: event.ActionPush, Tag: tag, Push: &event.Push{Before: "sha1", After: "sha2"}}},
		{name: "deleted", rule: HashChanged{}, payload: &event.Payload{Action: event.ActionPush, Tag: tag, Push: &event.Push{Before: "sha1", After: entity.ZeroSHA, Deleted: true}}, wantNil: true},
		{name: "branch payload", rule: Created{}, payload: &event.Payload{Action: event.ActionCreated, Branch: &entity.Branch{Name: "main"}}, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.CheckHook(context.Background(), tt.payload)
			if err != nil {
				t.Fatalf("CheckHook() = %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("CheckHook() = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}
