/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package remote defines the boundary to the code-hosting service: listing
// branches, pull requests and tags, computing commit deltas, and posting
// commit statuses.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"chainguard.dev/buildtrigger/entity"
)

// ErrUnsupported is returned by clients that cannot serve an operation.
var ErrUnsupported = errors.New("operation not supported by this client")

// Client is the remote repository client.
type Client interface {
	ListBranches(ctx context.Context, repo Repository) ([]entity.Branch, error)
	ListPullRequests(ctx context.Context, repo Repository) ([]entity.PullRequest, error)
	ListTags(ctx context.Context, repo Repository) ([]entity.Tag, error)
	// CompareCommits returns the commits reachable from toSHA but not from
	// fromSHA, oldest first. An empty fromSHA returns only the toSHA commit.
	CompareCommits(ctx context.Context, repo Repository, fromSHA, toSHA string) ([]entity.Commit, error)
	PostCommitStatus(ctx context.Context, repo Repository, sha string, status Status) error
}

// Commit status states.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// Status is a commit status to publish.
type Status struct {
	State       string
	TargetURL   string
	Description string
	Context     string
}

// Repository identifies a repository on the hosting service.
type Repository struct {
	Host  string
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	if r.Host == "" {
		return r.FullName()
	}
	return r.Host + "/" + r.FullName()
}

// Matches reports whether fullName ("owner/name") on host names this
// repository. The comparison is case-insensitive, as repository names are on
// GitHub. Hosts are compared only when both sides carry one.
func (r Repository) Matches(host, fullName string) bool {
	if r.Host != "" && host != "" && !strings.EqualFold(r.Host, host) {
		return false
	}
	return strings.EqualFold(r.FullName(), fullName)
}

// ParseRepository parses a repository reference. Accepted forms are
// "https://host/owner/name", "https://host/owner/name.git",
// "git@host:owner/name.git" and "owner/name".
func ParseRepository(ref string) (Repository, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Repository{}, errors.New("empty repository reference")
	}

	var host, path string
	switch {
	case strings.Contains(ref, "://"):
		u, err := url.Parse(ref)
		if err != nil {
			return Repository{}, fmt.Errorf("parsing repository url %q: %w", ref, err)
		}
		if u.Host == "" {
			return Repository{}, fmt.Errorf("repository url %q has no host", ref)
		}
		host, path = u.Host, u.Path
	case strings.HasPrefix(ref, "git@"):
		rest := strings.TrimPrefix(ref, "git@")
		h, p, ok := strings.Cut(rest, ":")
		if !ok || h == "" {
			return Repository{}, fmt.Errorf("malformed ssh repository reference %q", ref)
		}
		host, path = h, p
	default:
		path = ref
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("repository reference %q is not of the form owner/name", ref)
	}
	return Repository{Host: host, Owner: parts[0], Name: parts[1]}, nil
}
