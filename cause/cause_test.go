/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cause

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	c := New("PR opened",
		WithHeadSHA("abc123"),
		WithTitle("feat: add thing"),
		WithURL("https://github.com/org/repo/pull/1"),
		WithLabels("bug", "ci"),
		WithState("open"),
	)

	if c.Skip() {
		t.Error("New() should not produce a skip cause")
	}
	if got, want := c.HeadSHA(), "abc123"; got != want {
		t.Errorf("HeadSHA() = %q, want %q", got, want)
	}
	if got, want := c.ShortDescription(), "PR opened"; got != want {
		t.Errorf("ShortDescription() = %q, want %q", got, want)
	}
	if got, want := c.Title(), "feat: add thing"; got != want {
		t.Errorf("Title() = %q, want %q", got, want)
	}
	if got, want := c.URL(), "https://github.com/org/repo/pull/1"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"bug", "ci"}, c.Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
	if got, want := c.State(), "open"; got != want {
		t.Errorf("State() = %q, want %q", got, want)
	}
	if got, want := c.String(), "build abc123: PR opened"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSkip(t *testing.T) {
	c := Skipf("commit message matched %q", `\[ci skip\]`)
	if !c.Skip() {
		t.Fatal("Skipf() should produce a skip cause")
	}
	if got, want := c.ShortDescription(), `commit message matched "\\[ci skip\\]"`; got != want {
		t.Errorf("ShortDescription() = %q, want %q", got, want)
	}
	if got, want := c.String(), "skip: "+c.ShortDescription(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestImmutability(t *testing.T) {
	labels := []string{"a", "b"}
	c := New("labels", WithLabels(labels...))

	// Mutating the input slice does not leak into the cause.
	labels[0] = "mutated"
	if got := c.Labels()[0]; got != "a" {
		t.Errorf("Labels()[0] = %q after mutating input, want %q", got, "a")
	}

	// Mutating the returned slice does not leak into the cause.
	out := c.Labels()
	out[1] = "mutated"
	if got := c.Labels()[1]; got != "b" {
		t.Errorf("Labels()[1] = %q after mutating output, want %q", got, "b")
	}

	// With returns a modified copy.
	d := c.With(WithHeadSHA("def456"), WithCommentBody("retest"))
	if c.HeadSHA() != "" || c.CommentBody() != "" {
		t.Errorf("With() modified the receiver: sha=%q comment=%q", c.HeadSHA(), c.CommentBody())
	}
	if d.HeadSHA() != "def456" || d.CommentBody() != "retest" {
		t.Errorf("With() = sha %q comment %q, want def456/retest", d.HeadSHA(), d.CommentBody())
	}
	if d.Skip() != c.Skip() {
		t.Error("With() changed the skip flag")
	}
}
