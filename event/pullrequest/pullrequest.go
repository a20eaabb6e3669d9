/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pullrequest provides build-decision rules for pull requests.
package pullrequest

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"chainguard.dev/buildtrigger/cause"
	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
)

// Rule is a pull request rule.
type Rule = event.Rule[entity.PullRequest]

var (
	_ Rule = Opened{}
	_ Rule = CommitChanged{}
	_ Rule = Closed{}
	_ Rule = (*LabelAdded)(nil)
	_ Rule = (*LabelExists)(nil)
	_ Rule = (*LabelNotExists)(nil)
	_ Rule = (*LabelPattern)(nil)
	_ Rule = (*DescriptionMatch)(nil)
	_ Rule = (*NonMergeable)(nil)
	_ Rule = (*Number)(nil)
	_ Rule = (*CommentPattern)(nil)
)

func newCause(pr entity.PullRequest, skip bool, desc string, opts ...cause.Option) *cause.Cause {
	opts = append([]cause.Option{
		cause.WithHeadSHA(pr.SHA),
		cause.WithTitle(pr.Title),
		cause.WithURL(pr.URL),
		cause.WithLabels(pr.Labels...),
		cause.WithState(pr.State),
	}, opts...)
	if skip {
		return cause.Skip(desc, opts...)
	}
	return cause.New(desc, opts...)
}

// hookPR returns the pull request carried by a payload, if any.
func hookPR(p *event.Payload) (entity.PullRequest, bool) {
	if p.PullRequest == nil {
		return entity.PullRequest{}, false
	}
	return *p.PullRequest, true
}

// Opened requests a build for an open pull request seen for the first time.
type Opened struct{}

// Name implements event.Rule.
func (Opened) Name() string { return "pr-opened" }

// Check implements event.Rule.
func (Opened) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	if ec.Local != nil || !ec.Remote.IsOpen() {
		return nil, nil
	}
	ec.Printf("%s: new pull request #%d", ec.Trigger.ID, ec.Remote.Number)
	return newCause(ec.Remote, false, "PR opened"), nil
}

// CheckHook implements event.Rule.
func (Opened) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok || (p.Action != event.ActionOpened && p.Action != event.ActionReopened) {
		return nil, nil
	}
	return newCause(pr, false, "PR opened"), nil
}

// CommitChanged requests a build when the head commit of a known open pull
// request changed.
type CommitChanged struct{}

// Name implements event.Rule.
func (CommitChanged) Name() string { return "pr-commit-changed" }

// Check implements event.Rule.
func (CommitChanged) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	if ec.Local == nil || !ec.Remote.IsOpen() || ec.Local.SHA == ec.Remote.SHA {
		return nil, nil
	}
	ec.Printf("%s: pull request #%d head %s -> %s", ec.Trigger.ID, ec.Remote.Number, ec.Local.SHA, ec.Remote.SHA)
	return newCause(ec.Remote, false, "PR commit changed"), nil
}

// CheckHook implements event.Rule.
func (CommitChanged) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok || p.Action != event.ActionSynchronize {
		return nil, nil
	}
	return newCause(pr, false, "PR commit changed"), nil
}

// Closed requests a build when a known open pull request was closed.
type Closed struct{}

// Name implements event.Rule.
func (Closed) Name() string { return "pr-closed" }

// Check implements event.Rule.
func (Closed) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	if ec.Local == nil || !ec.Local.IsOpen() || ec.Remote.IsOpen() {
		return nil, nil
	}
	return newCause(ec.Remote, false, "PR closed"), nil
}

// CheckHook implements event.Rule.
func (Closed) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok || p.Action != event.ActionClosed {
		return nil, nil
	}
	return newCause(pr, false, "PR closed"), nil
}

// LabelAdded requests a build when any of Labels was added since the last pass.
type LabelAdded struct {
	Labels []string
}

// Name implements event.Rule.
func (*LabelAdded) Name() string { return "pr-label-added" }

// Check implements event.Rule.
func (r *LabelAdded) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	for _, l := range r.Labels {
		if !ec.Remote.HasLabel(l) {
			continue
		}
		if ec.Local != nil && ec.Local.HasLabel(l) {
			continue
		}
		ec.Printf("%s: pull request #%d labeled %q", ec.Trigger.ID, ec.Remote.Number, l)
		return newCause(ec.Remote, false, fmt.Sprintf("Label %q added", l), cause.WithMatch(l)), nil
	}
	return nil, nil
}

// CheckHook implements event.Rule.
func (r *LabelAdded) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok || p.Action != event.ActionLabeled || !slices.Contains(r.Labels, p.Label) {
		return nil, nil
	}
	return newCause(pr, false, fmt.Sprintf("Label %q added", p.Label), cause.WithMatch(p.Label)), nil
}

// LabelExists decides when the pull request carries every one of Labels.
// The Cause skips if Skip is set and requests a build otherwise.
type LabelExists struct {
	Labels []string
	Skip   bool
}

// Name implements event.Rule.
func (*LabelExists) Name() string { return "pr-label-exists" }

func (r *LabelExists) decide(pr entity.PullRequest) *cause.Cause {
	if len(r.Labels) == 0 {
		return nil
	}
	for _, l := range r.Labels {
		if !pr.HasLabel(l) {
			return nil
		}
	}
	return newCause(pr, r.Skip, fmt.Sprintf("Labels %v exist", r.Labels))
}

// Check implements event.Rule.
func (r *LabelExists) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *LabelExists) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// LabelNotExists decides when the pull request carries none of Labels.
// The Cause skips if Skip is set and requests a build otherwise.
type LabelNotExists struct {
	Labels []string
	Skip   bool
}

// Name implements event.Rule.
func (*LabelNotExists) Name() string { return "pr-label-not-exists" }

func (r *LabelNotExists) decide(pr entity.PullRequest) *cause.Cause {
	if slices.ContainsFunc(r.Labels, pr.HasLabel) {
		return nil
	}
	return newCause(pr, r.Skip, fmt.Sprintf("Labels %v do not exist", r.Labels))
}

// Check implements event.Rule.
func (r *LabelNotExists) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *LabelNotExists) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// LabelPattern requests a build when any label matches any of Patterns.
type LabelPattern struct {
	Patterns []*regexp.Regexp
}

// Name implements event.Rule.
func (*LabelPattern) Name() string { return "pr-label-pattern" }

func (r *LabelPattern) decide(pr entity.PullRequest) *cause.Cause {
	for _, l := range pr.Labels {
		for _, p := range r.Patterns {
			if p.MatchString(l) {
				return newCause(pr, false, fmt.Sprintf("Label %q matches %q", l, p.String()), cause.WithMatch(l))
			}
		}
	}
	return nil
}

// Check implements event.Rule.
func (r *LabelPattern) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *LabelPattern) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// DescriptionMatch decides when the title or body matches Pattern.
// The Cause skips if Skip is set and requests a build otherwise.
type DescriptionMatch struct {
	Pattern *regexp.Regexp
	Skip    bool
}

// Name implements event.Rule.
func (*DescriptionMatch) Name() string { return "pr-description-match" }

func (r *DescriptionMatch) decide(pr entity.PullRequest) *cause.Cause {
	for _, text := range []string{pr.Title, pr.Body} {
		if loc := r.Pattern.FindStringIndex(text); loc != nil {
			return newCause(pr, r.Skip, fmt.Sprintf("Description matches %q", r.Pattern.String()),
				cause.WithMatch(text[loc[0]:loc[1]]))
		}
	}
	return nil
}

// Check implements event.Rule.
func (r *DescriptionMatch) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *DescriptionMatch) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// NonMergeable decides when the host reports the pull request cannot be
// merged. Unknown mergeability is no opinion.
type NonMergeable struct {
	Skip bool
}

// Name implements event.Rule.
func (*NonMergeable) Name() string { return "pr-non-mergeable" }

func (r *NonMergeable) decide(pr entity.PullRequest) *cause.Cause {
	if pr.Mergeable == nil || *pr.Mergeable {
		return nil
	}
	return newCause(pr, r.Skip, "PR is not mergeable")
}

// Check implements event.Rule.
func (r *NonMergeable) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *NonMergeable) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// Number decides for the listed pull request numbers.
// The Cause skips if Skip is set and requests a build otherwise.
type Number struct {
	Numbers []int
	Skip    bool
}

// Name implements event.Rule.
func (*Number) Name() string { return "pr-number" }

func (r *Number) decide(pr entity.PullRequest) *cause.Cause {
	if !slices.Contains(r.Numbers, pr.Number) {
		return nil
	}
	return newCause(pr, r.Skip, fmt.Sprintf("PR #%d matched", pr.Number))
}

// Check implements event.Rule.
func (r *Number) Check(_ context.Context, ec *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return r.decide(ec.Remote), nil
}

// CheckHook implements event.Rule.
func (r *Number) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok {
		return nil, nil
	}
	return r.decide(pr), nil
}

// CommentPattern requests a build when a new comment matches Pattern.
// Comments are only observed through hooks; polling has no opinion.
type CommentPattern struct {
	Pattern *regexp.Regexp
}

// Name implements event.Rule.
func (*CommentPattern) Name() string { return "pr-comment-pattern" }

// Check implements event.Rule.
func (*CommentPattern) Check(context.Context, *event.Context[entity.PullRequest]) (*cause.Cause, error) {
	return nil, nil
}

// CheckHook implements event.Rule.
func (r *CommentPattern) CheckHook(_ context.Context, p *event.Payload) (*cause.Cause, error) {
	pr, ok := hookPR(p)
	if !ok || p.Action != event.ActionCommentCreated {
		return nil, nil
	}
	loc := r.Pattern.FindStringIndex(p.Comment)
	if loc == nil {
		return nil, nil
	}
	return newCause(pr, false, fmt.Sprintf("Comment matches %q", r.Pattern.String()),
		cause.WithCommentBody(p.Comment), cause.WithMatch(p.Comment[loc[0]:loc[1]])), nil
}
