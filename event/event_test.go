/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import (
	"context"
	"errors"
	"testing"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/entity"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// stubRule returns a fixed result and counts invocations.
type stubRule struct {
	name   string
	result *cause.Cause
	err    error
	panics bool
	calls  int
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) Check(context.Context, *Context[entity.Branch]) (*cause.Cause, error) {
	return r.invoke()
}

func (r *stubRule) CheckHook(context.Context, *Payload) (*cause.Cause, error) {
	return r.invoke()
}

func (r *stubRule) invoke() (*cause.Cause, error) {
	r.calls++
	if r.panics {
		panic("boom")
	}
	return r.result, r.err
}

func abstain(name string) *stubRule { return &stubRule{name: name} }

func testContext() *Context[entity.Branch] {
	return &Context[entity.Branch]{
		Remote: entity.Branch{Name: "main", SHA: "sha2"},
		Local:  &entity.Branch{Name: "main", SHA: "sha1"},
	}
}

func TestEvaluateFirstDecisiveWins(t *testing.T) {
	build := cause.New("build", cause.WithHeadSHA("sha2"))
	skip := cause.Skip("skip")

	tests := []struct {
		name        string
		rules       []*stubRule
		want        *cause.Cause
		wantOutcome Outcome
		wantCalls   []int
	}{{
		name:        "first rule decides with build",
		rules:       []*stubRule{{name: "a", result: build}, {name: "b", result: skip}},
		want:        build,
		wantOutcome: Decided,
		wantCalls:   []int{1, 0},
	}, {
		name:        "build before skip pre-empts the skip",
		rules:       []*stubRule{abstain("a"), {name: "b", result: build}, {name: "c", result: skip}},
		want:        build,
		wantOutcome: Decided,
		wantCalls:   []int{1, 1, 0},
	}, {
		name:        "skip before build pre-empts the build",
		rules:       []*stubRule{{name: "a", result: skip}, {name: "b", result: build}},
		want:        skip,
		wantOutcome: Decided,
		wantCalls:   []int{1, 0},
	}, {
		name:        "all abstain",
		rules:       []*stubRule{abstain("a"), abstain("b"), abstain("c")},
		want:        nil,
		wantOutcome: NoOpinion,
		wantCalls:   []int{1, 1, 1},
	}, {
		name:        "empty chain",
		rules:       nil,
		want:        nil,
		wantOutcome: NoOpinion,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := make(Chain[entity.Branch], 0, len(tt.rules))
			for _, r := range tt.rules {
				chain = append(chain, r)
			}

			got, outcome := chain.Evaluate(context.Background(), testContext())
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("Evaluate() outcome = %v, want %v", outcome, tt.wantOutcome)
			}

			calls := make([]int, 0, len(tt.rules))
			for _, r := range tt.rules {
				calls = append(calls, r.calls)
			}
			if diff := cmp.Diff(tt.wantCalls, calls, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("rule calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateFailsClosed(t *testing.T) {
	for _, failing := range []*stubRule{
		{name: "errors", err: errors.New("compare commits: 502 Bad Gateway")},
		{name: "panics", panics: true},
	} {
		t.Run(failing.name, func(t *testing.T) {
			later := &stubRule{name: "later", result: cause.New("build")}
			chain := Chain[entity.Branch]{abstain("first"), failing, later}

			got, outcome := chain.Evaluate(context.Background(), testContext())
			if outcome != Errored {
				t.Errorf("outcome = %v, want %v", outcome, Errored)
			}
			if got == nil || !got.Skip() {
				t.Fatalf("Evaluate() = %v, want a skip cause", got)
			}
			if got.ShortDescription() == "" {
				t.Error("skip cause should carry the error text")
			}
			if later.calls != 0 {
				t.Errorf("rule after the failing rule was called %d times", later.calls)
			}
		})
	}
}

func TestEvaluateErrorDescription(t *testing.T) {
	chain := Chain[entity.Branch]{&stubRule{name: "x", err: errors.New("rate limited")}}
	got, _ := chain.Evaluate(context.Background(), testContext())
	if got.ShortDescription() != "rate limited" {
		t.Errorf("ShortDescription() = %q, want %q", got.ShortDescription(), "rate limited")
	}
}

func TestEvaluateHook(t *testing.T) {
	build := cause.New("pushed")
	first, second := abstain("first"), &stubRule{name: "second", result: build}
	third := &stubRule{name: "third", result: cause.Skip("never")}
	chain := Chain[entity.Branch]{first, second, third}

	got, outcome := chain.EvaluateHook(context.Background(), &Payload{
		Kind:   entity.KindBranch,
		Action: ActionPush,
		Branch: &entity.Branch{Name: "main", SHA: "sha3"},
	})
	if got != build || outcome != Decided {
		t.Errorf("EvaluateHook() = %v, %v; want %v, %v", got, outcome, build, Decided)
	}
	if third.calls != 0 {
		t.Errorf("third rule called %d times, want 0", third.calls)
	}
}

func TestContextPrintf(t *testing.T) {
	var buf diag.Buffer
	ec := testContext()
	ec.Printf("ignored without a sink")

	ec.Diagnostics = &buf
	ec.Printf("branch %s changed", "main")
	if diff := cmp.Diff([]string{"branch main changed"}, buf.Lines()); diff != "" {
		t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	chain := Chain[entity.Branch]{abstain("a"), abstain("b")}
	if diff := cmp.Diff([]string{"a", "b"}, chain.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadKey(t *testing.T) {
	tests := []struct {
		p    Payload
		want string
	}{
		{p: Payload{Branch: &entity.Branch{Name: "main"}}, want: "main"},
		{p: Payload{PullRequest: &entity.PullRequest{Number: 42}}, want: "42"},
		{p: Payload{Tag: &entity.Tag{Name: "v1.0.0"}}, want: "v1.0.0"},
		{p: Payload{}, want: ""},
	}
	for _, tt := range tests {
		if got := tt.p.Key(); got != tt.want {
			t.Errorf("Key() = %q, want %q", got, tt.want)
		}
	}
}
