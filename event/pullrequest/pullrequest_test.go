/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pullrequest

import (
	"context"
	"regexp"
	"testing"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"github.com/google/go-cmp/cmp"
)

func pr(mutate ...func(*entity.PullRequest)) entity.PullRequest {
	p := entity.PullRequest{
		Number: 42,
		SHA:    "sha2",
		Base:   "main",
		Head:   "feature",
		Title:  "Add widgets",
		Body:   "This adds widgets.",
		Labels: []string{"enhancement"},
		State:  entity.StateOpen,
		URL:    "https://github.com/org/repo/pull/42",
	}
	for _, m := range mutate {
		m(&p)
	}
	return p
}

func ctxFor(remote entity.PullRequest, local *entity.PullRequest) *event.Context[entity.PullRequest] {
	return &event.Context[entity.PullRequest]{
		Remote:  remote,
		Local:   local,
		Trigger: event.Trigger{ID: "prs"},
	}
}

func ptr[T any](v T) *T { return &v }

func TestCheck(t *testing.T) {
	open := pr()
	closed := pr(func(p *entity.PullRequest) { p.State = entity.StateClosed })
	moved := pr(func(p *entity.PullRequest) { p.SHA = "sha3" })
	labeled := pr(func(p *entity.PullRequest) { p.Labels = []string{"enhancement", "ok-to-test"} })
	conflicted := pr(func(p *entity.PullRequest) { p.Mergeable = ptr(false) })
	mergeable := pr(func(p *entity.PullRequest) { p.Mergeable = ptr(true) })
	wip := pr(func(p *entity.PullRequest) { p.Title = "WIP: Add widgets" })

	tests := []struct {
		name     string
		rule     Rule
		remote   entity.PullRequest
		local    *entity.PullRequest
		wantNil  bool
		wantSkip bool
	}{
		{name: "opened new", rule: Opened{}, remote: open},
		{name: "opened known", rule: Opened{}, remote: open, local: &open, wantNil: true},
		{name: "opened closed", rule: Opened{}, remote: closed, wantNil: true},
		{name: "commit changed", rule: CommitChanged{}, remote: moved, local: &open},
		{name: "commit unchanged", rule: CommitChanged{}, remote: open, local: &open, wantNil: true},
		{name: "commit changed but closed", rule: CommitChanged{}, remote: closed, local: &moved, wantNil: true},
		{name: "commit changed new", rule: CommitChanged{}, remote: open, wantNil: true},
		{name: "closed", rule: Closed{}, remote: closed, local: &open},
		{name: "closed already known", rule: Closed{}, remote: closed, local: &closed, wantNil: true},
		{name: "label added", rule: &LabelAdded{Labels: []string{"ok-to-test"}}, remote: labeled, local: &open},
		{name: "label already present", rule: &LabelAdded{Labels: []string{"ok-to-test"}}, remote: labeled, local: &labeled, wantNil: true},
		{name: "label added on new pr", rule: &LabelAdded{Labels: []string{"ok-to-test"}}, remote: labeled},
		{name: "label exists", rule: &LabelExists{Labels: []string{"enhancement", "ok-to-test"}}, remote: labeled},
		{name: "label exists partial", rule: &LabelExists{Labels: []string{"enhancement", "ok-to-test"}}, remote: open, wantNil: true},
		{name: "label exists skip", rule: &LabelExists{Labels: []string{"enhancement"}, Skip: true}, remote: open, wantSkip: true},
		{name: "label exists empty", rule: &LabelExists{}, remote: open, wantNil: true},
		{name: "label not exists", rule: &LabelNotExists{Labels: []string{"do-not-build"}, Skip: true}, remote: open, wantSkip: true},
		{name: "label not exists present", rule: &LabelNotExists{Labels: []string{"enhancement"}}, remote: open, wantNil: true},
		{name: "label pattern", rule: &LabelPattern{Patterns: []*regexp.Regexp{regexp.MustCompile(`^ok-`)}}, remote: labeled},
		{name: "label pattern no match", rule: &LabelPattern{Patterns: []*regexp.Regexp{regexp.MustCompile(`^ok-`)}}, remote: open, wantNil: true},
		{name: "description title", rule: &DescriptionMatch{Pattern: regexp.MustCompile(`^WIP`), Skip: true}, remote: wip, wantSkip: true},
		{name: "description body", rule: &DescriptionMatch{Pattern: regexp.MustCompile(`adds`)}, remote: open},
		{name: "description no match", rule: &DescriptionMatch{Pattern: regexp.MustCompile(`^WIP`)}, remote: open, wantNil: true},
		{name: "non mergeable", rule: &NonMergeable{Skip: true}, remote: conflicted, wantSkip: true},
		{name: "mergeable", rule: &NonMergeable{}, remote: mergeable, wantNil: true},
		{name: "mergeable unknown", rule: &NonMergeable{}, remote: open, wantNil: true},
		{name: "number listed", rule: &Number{Numbers: []int{7, 42}}, remote: open},
		{name: "number skip", rule: &Number{Numbers: []int{42}, Skip: true}, remote: open, wantSkip: true},
		{name: "number unlisted", rule: &Number{Numbers: []int{7}}, remote: open, wantNil: true},
		{name: "comment pattern never polls", rule: &CommentPattern{Pattern: regexp.MustCompile(`.*`)}, remote: open, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Check(context.Background(), ctxFor(tt.remote, tt.local))
			if err != nil {
				t.Fatalf("Check() = %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("Check() = %v, wantNil %v", got, tt.wantNil)
			}
			if got == nil {
				return
			}
			if got.Skip() != tt.wantSkip {
				t.Errorf("Skip() = %v, want %v", got.Skip(), tt.wantSkip)
			}
			if got.HeadSHA() != tt.remote.SHA {
				t.Errorf("HeadSHA() = %q, want %q", got.HeadSHA(), tt.remote.SHA)
			}
			if got.URL() != tt.remote.URL {
				t.Errorf("URL() = %q, want %q", got.URL(), tt.remote.URL)
			}
		})
	}
}

func TestCauseCarriesPullRequestFields(t *testing.T) {
	remote := pr(func(p *entity.PullRequest) { p.Labels = []string{"a", "b"} })
	got, err := Opened{}.Check(context.Background(), ctxFor(remote, nil))
	if err != nil {
		t.Fatalf("Check() = %v", err)
	}
	if got.Title() != "Add widgets" {
		t.Errorf("Title() = %q", got.Title())
	}
	if got.State() != entity.StateOpen {
		t.Errorf("State() = %q", got.State())
	}
	if diff := cmp.Diff([]string{"a", "b"}, got.Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckHook(t *testing.T) {
	open := pr()
	payload := func(action, label, comment string) *event.Payload {
		return &event.Payload{
			Kind:        entity.KindPullRequest,
			Action:      action,
			PullRequest: &open,
			Label:       label,
			Comment:     comment,
		}
	}
	rebuild := regexp.MustCompile(`(?i)/rebuild`)

	tests := []struct {
		name      string
		rule      Rule
		payload   *event.Payload
		wantNil   bool
		wantMatch string
	}{
		{name: "opened", rule: Opened{}, payload: payload(event.ActionOpened, "", "")},
		{name: "reopened", rule: Opened{}, payload: payload(event.ActionReopened, "", "")},
		{name: "opened on edit", rule: Opened{}, payload: payload(event.ActionEdited, "", ""), wantNil: true},
		{name: "synchronize", rule: CommitChanged{}, payload: payload(event.ActionSynchronize, "", "")},
		{name: "closed", rule: Closed{}, payload: payload(event.ActionClosed, "", "")},
		{name: "labeled", rule: &LabelAdded{Labels: []string{"ok-to-test"}}, payload: payload(event.ActionLabeled, "ok-to-test", ""), wantMatch: "ok-to-test"},
		{name: "labeled other", rule: &LabelAdded{Labels: []string{"ok-to-test"}}, payload: payload(event.ActionLabeled, "bug", ""), wantNil: true},
		{name: "comment matches", rule: &CommentPattern{Pattern: rebuild}, payload: payload(event.ActionCommentCreated, "", "please /REBUILD"), wantMatch: "/REBUILD"},
		{name: "comment no match", rule: &CommentPattern{Pattern: rebuild}, payload: payload(event.ActionCommentCreated, "", "lgtm"), wantNil: true},
		{name: "comment on open", rule: &CommentPattern{Pattern: rebuild}, payload: payload(event.ActionOpened, "", "/rebuild"), wantNil: true},
		{name: "label exists", rule: &LabelExists{Labels: []string{"enhancement"}}, payload: payload(event.ActionEdited, "", "")},
		{name: "no pull request", rule: Opened{}, payload: &event.Payload{Action: event.ActionOpened}, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.CheckHook(context.Background(), tt.payload)
			if err != nil {
				t.Fatalf("CheckHook() = %v", err)
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("CheckHook() = %v, wantNil %v", got, tt.wantNil)
			}
			if got != nil && got.Match() != tt.wantMatch {
				t.Errorf("Match() = %q, want %q", got.Match(), tt.wantMatch)
			}
		})
	}
}

func TestCommentPatternCarriesBody(t *testing.T) {
	open := pr()
	got, _ := (&CommentPattern{Pattern: regexp.MustCompile(`/retest`)}).CheckHook(context.Background(), &event.Payload{
		Action:      event.ActionCommentCreated,
		PullRequest: &open,
		Comment:     "/retest please",
	})
	if got == nil || got.CommentBody() != "/retest please" {
		t.Errorf("CheckHook() = %v, want cause with the comment body", got)
	}
}
