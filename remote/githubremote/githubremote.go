/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubremote implements remote.Client against the GitHub REST and
// GraphQL APIs.
package githubremote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

const (
	pageSize = 100

	// DefaultClosedWindow is how many recently closed pull requests are
	// listed alongside the open ones.
	DefaultClosedWindow = 50

	// GitHub rejects longer status descriptions.
	maxDescription = 140
)

// Client talks to GitHub.
type Client struct {
	rest *github.Client
	gql  *githubv4.Client

	restURL, graphqlURL string
	closedWindow        int
}

var _ remote.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs points the client at a GitHub Enterprise instance or a test
// server. rest is the REST API root, graphql the GraphQL endpoint.
func WithBaseURLs(rest, graphql string) Option {
	return func(c *Client) {
		c.restURL, c.graphqlURL = rest, graphql
	}
}

// WithClosedWindow sets how many recently closed pull requests are listed.
// Closing a pull request is only observed while it is inside this window.
func WithClosedWindow(n int) Option {
	return func(c *Client) { c.closedWindow = n }
}

// New constructs a Client on top of an authenticated HTTP client.
func New(hc *http.Client, opts ...Option) (*Client, error) {
	c := &Client{closedWindow: DefaultClosedWindow}
	for _, opt := range opts {
		opt(c)
	}

	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &statusTransport{next: next}

	c.rest = github.NewClient(&wrapped)
	if c.restURL != "" {
		u, err := url.Parse(strings.TrimSuffix(c.restURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing rest url: %w", err)
		}
		c.rest.BaseURL = u
	}
	if c.graphqlURL != "" {
		c.gql = githubv4.NewEnterpriseClient(c.graphqlURL, &wrapped)
	} else {
		c.gql = githubv4.NewClient(&wrapped)
	}
	return c, nil
}

// NewTokenClient constructs a Client authenticating with a personal access
// or installation token.
func NewTokenClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return New(hc, opts...)
}

// NewAppClient constructs a Client authenticating as a GitHub App
// installation.
func NewAppClient(appID, installationID int64, keyPath string, opts ...Option) (*Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading github app key: %w", err)
	}
	return New(&http.Client{Transport: tr}, opts...)
}

// ListBranches implements remote.Client.
func (c *Client) ListBranches(ctx context.Context, repo remote.Repository) ([]entity.Branch, error) {
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: pageSize}}
	var out []entity.Branch
	for {
		branches, resp, err := c.rest.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("listing branches of %s: %w", repo, err))
		}
		for _, b := range branches {
			out = append(out, entity.Branch{Name: b.GetName(), SHA: b.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListTags implements remote.Client.
func (c *Client) ListTags(ctx context.Context, repo remote.Repository) ([]entity.Tag, error) {
	opts := &github.ListOptions{PerPage: pageSize}
	var out []entity.Tag
	for {
		tags, resp, err := c.rest.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("listing tags of %s: %w", repo, err))
		}
		for _, t := range tags {
			out = append(out, entity.Tag{Name: t.GetName(), SHA: t.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// CompareCommits implements remote.Client.
func (c *Client) CompareCommits(ctx context.Context, repo remote.Repository, fromSHA, toSHA string) ([]entity.Commit, error) {
	if fromSHA == "" || fromSHA == entity.ZeroSHA {
		commit, _, err := c.rest.Repositories.GetCommit(ctx, repo.Owner, repo.Name, toSHA, nil)
		if err != nil {
			return nil, classify(fmt.Errorf("fetching commit %s of %s: %w", toSHA, repo, err))
		}
		return []entity.Commit{{SHA: commit.GetSHA(), Message: commit.GetCommit().GetMessage()}}, nil
	}

	// Compare pages run oldest first, so the head commit is on the last page.
	opts := &github.ListOptions{PerPage: pageSize}
	var out []entity.Commit
	for {
		cmp, resp, err := c.rest.Repositories.CompareCommits(ctx, repo.Owner, repo.Name, fromSHA, toSHA, opts)
		if err != nil {
			return nil, classify(fmt.Errorf("comparing %s...%s in %s: %w", fromSHA, toSHA, repo, err))
		}
		for _, rc := range cmp.Commits {
			out = append(out, entity.Commit{SHA: rc.GetSHA(), Message: rc.GetCommit().GetMessage()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	if out == nil {
		out = []entity.Commit{}
	}
	return out, nil
}

// PostCommitStatus implements remote.Client.
func (c *Client) PostCommitStatus(ctx context.Context, repo remote.Repository, sha string, status remote.Status) error {
	desc := status.Description
	if len(desc) > maxDescription {
		desc = desc[:maxDescription-3] + "..."
	}
	rs := github.RepoStatus{
		State:       optional(status.State),
		TargetURL:   optional(status.TargetURL),
		Description: optional(desc),
		Context:     optional(status.Context),
	}
	if _, _, err := c.rest.Repositories.CreateStatus(ctx, repo.Owner, repo.Name, sha, rs); err != nil {
		return classify(fmt.Errorf("posting status to %s@%s: %w", repo, sha, err))
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return github.Ptr(s)
}

// classify marks rate limiting as transient. Server errors are marked by
// statusTransport before they reach the API clients.
func classify(err error) error {
	var (
		rle *github.RateLimitError
		are *github.AbuseRateLimitError
		ere *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rle), errors.As(err, &are):
		return remote.Transient(err)
	case errors.As(err, &ere) && ere.Response != nil && ere.Response.StatusCode >= http.StatusInternalServerError:
		return remote.Transient(err)
	}
	return err
}

// statusTransport turns 5xx and 429 responses into transient errors.
type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, remote.Transient(fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status))
	}
	return resp, nil
}
