/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"slices"
	"sync"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
)

// Fake is an in-memory remote.Client. Zero value is ready to use. Setting an
// *Err field makes the corresponding call fail. It is safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	Branches     []entity.Branch
	PullRequests []entity.PullRequest
	Tags         []entity.Tag
	// Commits maps "from..to" to the commit delta returned by CompareCommits.
	Commits map[string][]entity.Commit

	BranchesErr error
	PullsErr    error
	TagsErr     error
	CompareErr  error
	StatusErr   error

	calls    map[string]int
	statuses []PostedStatus
}

// PostedStatus records a PostCommitStatus call.
type PostedStatus struct {
	Repo   remote.Repository
	SHA    string
	Status remote.Status
}

var _ remote.Client = (*Fake)(nil)

// CompareKey builds the Commits map key.
func CompareKey(from, to string) string { return from + ".." + to }

func (f *Fake) record(op string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how many times op was invoked, e.g. "ListBranches".
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Statuses returns the commit statuses posted so far.
func (f *Fake) Statuses() []PostedStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.statuses)
}

// SetBranches replaces the remote branches.
func (f *Fake) SetBranches(b ...entity.Branch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Branches = b
}

// SetPullRequests replaces the remote pull requests.
func (f *Fake) SetPullRequests(p ...entity.PullRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PullRequests = p
}

// SetBranchesErr replaces the error returned by ListBranches.
func (f *Fake) SetBranchesErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BranchesErr = err
}

// ListBranches implements remote.Client.
func (f *Fake) ListBranches(context.Context, remote.Repository) ([]entity.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListBranches")
	if f.BranchesErr != nil {
		return nil, f.BranchesErr
	}
	return slices.Clone(f.Branches), nil
}

// ListPullRequests implements remote.Client.
func (f *Fake) ListPullRequests(context.Context, remote.Repository) ([]entity.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPullRequests")
	if f.PullsErr != nil {
		return nil, f.PullsErr
	}
	return slices.Clone(f.PullRequests), nil
}

// ListTags implements remote.Client.
func (f *Fake) ListTags(context.Context, remote.Repository) ([]entity.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTags")
	if f.TagsErr != nil {
		return nil, f.TagsErr
	}
	return slices.Clone(f.Tags), nil
}

// CompareCommits implements remote.Client.
func (f *Fake) CompareCommits(_ context.Context, _ remote.Repository, from, to string) ([]entity.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CompareCommits")
	if f.CompareErr != nil {
		return nil, f.CompareErr
	}
	return slices.Clone(f.Commits[CompareKey(from, to)]), nil
}

// PostCommitStatus implements remote.Client.
func (f *Fake) PostCommitStatus(_ context.Context, repo remote.Repository, sha string, status remote.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PostCommitStatus")
	if f.StatusErr != nil {
		return f.StatusErr
	}
	f.statuses = append(f.statuses, PostedStatus{Repo: repo, SHA: sha, Status: status})
	return nil
}
