/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hook

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"github.com/google/go-github/v84/github"
)

// ErrIgnored is returned for notifications that carry nothing to decide on.
var ErrIgnored = errors.New("event ignored")

// GitHub event types understood by ParseGitHub.
const (
	EventPush         = "push"
	EventPullRequest  = "pull_request"
	EventIssueComment = "issue_comment"
)

// ParseGitHub converts a GitHub webhook delivery of type eventType
// (the X-GitHub-Event header) into a payload. Event types other than push,
// pull_request and issue_comment on a pull request return ErrIgnored. Ref
// creation is reported through push, so create events are ignored too.
func ParseGitHub(eventType string, body []byte) (*event.Payload, error) {
	switch eventType {
	case EventPush, EventPullRequest, EventIssueComment:
	default:
		return nil, fmt.Errorf("%w: %s", ErrIgnored, eventType)
	}

	raw, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s payload: %w", eventType, err)
	}

	var p *event.Payload
	switch e := raw.(type) {
	case *github.PushEvent:
		p, err = fromPush(e)
	case *github.PullRequestEvent:
		p, err = fromPullRequest(e)
	case *github.IssueCommentEvent:
		p, err = fromIssueComment(e)
	default:
		err = fmt.Errorf("%w: unexpected %T", ErrIgnored, raw)
	}
	if err != nil {
		return nil, err
	}
	p.Raw = raw
	return p, nil
}

func fromPush(e *github.PushEvent) (*event.Payload, error) {
	p := &event.Payload{
		Action:     event.ActionPush,
		Repository: e.GetRepo().GetFullName(),
		Host:       hostOf(e.GetRepo().GetHTMLURL()),
		Sender:     e.GetSender().GetLogin(),
		Push: &event.Push{
			Ref:     e.GetRef(),
			Before:  e.GetBefore(),
			After:   e.GetAfter(),
			Created: e.GetCreated(),
			Deleted: e.GetDeleted(),
		},
	}
	for _, c := range e.Commits {
		p.Push.Messages = append(p.Push.Messages, c.GetMessage())
	}

	ref := e.GetRef()
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		p.Kind = entity.KindBranch
		p.Branch = &entity.Branch{Name: name, SHA: e.GetAfter()}
		return p, nil
	}
	if name, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		p.Kind = entity.KindTag
		p.Tag = &entity.Tag{Name: name, SHA: e.GetAfter()}
		return p, nil
	}
	return nil, fmt.Errorf("%w: push to %q", ErrIgnored, ref)
}

func fromPullRequest(e *github.PullRequestEvent) (*event.Payload, error) {
	pr := e.GetPullRequest()
	if pr == nil {
		return nil, errors.New("pull_request event without a pull request")
	}
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	return &event.Payload{
		Kind:       entity.KindPullRequest,
		Action:     e.GetAction(),
		Repository: e.GetRepo().GetFullName(),
		Host:       hostOf(e.GetRepo().GetHTMLURL()),
		Sender:     e.GetSender().GetLogin(),
		Label:      e.GetLabel().GetName(),
		PullRequest: &entity.PullRequest{
			Number:    pr.GetNumber(),
			SHA:       pr.GetHead().GetSHA(),
			Base:      pr.GetBase().GetRef(),
			Head:      pr.GetHead().GetRef(),
			Title:     pr.GetTitle(),
			Body:      pr.GetBody(),
			Author:    pr.GetUser().GetLogin(),
			Labels:    labels,
			Mergeable: pr.Mergeable,
			State:     pr.GetState(),
			URL:       pr.GetHTMLURL(),
		},
	}, nil
}

func fromIssueComment(e *github.IssueCommentEvent) (*event.Payload, error) {
	issue := e.GetIssue()
	if issue == nil || !issue.IsPullRequest() {
		return nil, fmt.Errorf("%w: comment on an issue", ErrIgnored)
	}
	if e.GetAction() != "created" {
		return nil, fmt.Errorf("%w: comment %s", ErrIgnored, e.GetAction())
	}
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	// Comment payloads do not carry the head commit; rules that need it
	// get it from the next poll.
	return &event.Payload{
		Kind:       entity.KindPullRequest,
		Action:     event.ActionCommentCreated,
		Repository: e.GetRepo().GetFullName(),
		Host:       hostOf(e.GetRepo().GetHTMLURL()),
		Sender:     e.GetSender().GetLogin(),
		Comment:    e.GetComment().GetBody(),
		PullRequest: &entity.PullRequest{
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
			Body:   issue.GetBody(),
			Author: issue.GetUser().GetLogin(),
			Labels: labels,
			State:  issue.GetState(),
			URL:    issue.GetHTMLURL(),
		},
	}, nil
}

// hostOf returns the host of a repository's web URL, or "" when it has none.
func hostOf(htmlURL string) string {
	u, err := url.Parse(htmlURL)
	if err != nil {
		return ""
	}
	return u.Host
}
