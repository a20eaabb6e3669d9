/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubremote

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
	"github.com/shurcooL/githubv4"
)

type prNode struct {
	Number      int
	HeadRefOid  string
	BaseRefName string
	HeadRefName string
	Title       string
	Body        string
	URL         string
	State       string
	Mergeable   string
	// ReviewDecision is null when no review is required.
	ReviewDecision string
	Author         struct {
		Login string
	}
	Labels struct {
		Nodes []struct {
			Name string
		}
	} `graphql:"labels(first: 100)"`
}

type prQuery struct {
	Repository struct {
		PullRequests struct {
			Nodes    []prNode
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage bool
			}
		} `graphql:"pullRequests(first: $first, after: $cursor, states: $states, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// ListPullRequests implements remote.Client. It returns every open pull
// request and the most recently closed or merged ones.
func (c *Client) ListPullRequests(ctx context.Context, repo remote.Repository) ([]entity.PullRequest, error) {
	open, err := c.queryPullRequests(ctx, repo, []githubv4.PullRequestState{githubv4.PullRequestStateOpen}, 0)
	if err != nil {
		return nil, err
	}
	if c.closedWindow <= 0 {
		return open, nil
	}
	closed, err := c.queryPullRequests(ctx, repo,
		[]githubv4.PullRequestState{githubv4.PullRequestStateClosed, githubv4.PullRequestStateMerged}, c.closedWindow)
	if err != nil {
		return nil, err
	}
	return append(open, closed...), nil
}

// queryPullRequests pages through pull requests in states. A positive limit
// stops after that many results.
func (c *Client) queryPullRequests(ctx context.Context, repo remote.Repository, states []githubv4.PullRequestState, limit int) ([]entity.PullRequest, error) {
	first := pageSize
	if limit > 0 && limit < first {
		first = limit
	}
	vars := map[string]any{
		"owner":  githubv4.String(repo.Owner),
		"name":   githubv4.String(repo.Name),
		"states": states,
		"first":  githubv4.Int(first),
		"cursor": (*githubv4.String)(nil),
	}

	var out []entity.PullRequest
	for {
		var q prQuery
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return nil, classify(fmt.Errorf("querying pull requests of %s: %w", repo, err))
		}
		for _, n := range q.Repository.PullRequests.Nodes {
			out = append(out, n.toEntity())
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		page := q.Repository.PullRequests.PageInfo
		if !page.HasNextPage {
			return out, nil
		}
		vars["cursor"] = githubv4.NewString(page.EndCursor)
	}
}

func (n prNode) toEntity() entity.PullRequest {
	pr := entity.PullRequest{
		Number:         n.Number,
		SHA:            n.HeadRefOid,
		Base:           n.BaseRefName,
		Head:           n.HeadRefName,
		Title:          n.Title,
		Body:           n.Body,
		Author:         n.Author.Login,
		URL:            n.URL,
		State:          entity.StateOpen,
		ReviewDecision: strings.ToLower(n.ReviewDecision),
	}
	if n.State != string(githubv4.PullRequestStateOpen) {
		pr.State = entity.StateClosed
	}
	switch githubv4.MergeableState(n.Mergeable) {
	case githubv4.MergeableStateMergeable:
		pr.Mergeable = boolPtr(true)
	case githubv4.MergeableStateConflicting:
		pr.Mergeable = boolPtr(false)
	}
	for _, l := range n.Labels.Nodes {
		pr.Labels = append(pr.Labels, l.Name)
	}
	return pr
}

func boolPtr(b bool) *bool { return &b }
