/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package entity defines the units of work tracked per repository: branches,
// pull requests and tags. The same types describe both the current remote
// state and the last locally reconciled state.
package entity

import (
	"slices"
	"strconv"
)

// Kind identifies a type of entity.
type Kind int

const (
	// KindBranch is a git branch.
	KindBranch Kind = iota
	// KindPullRequest is a pull request.
	KindPullRequest
	// KindTag is a git tag.
	KindTag
)

// Kinds lists every entity kind in reconciliation order.
var Kinds = []Kind{KindBranch, KindPullRequest, KindTag}

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindPullRequest:
		return "pull_request"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Snapshot is the set of entity types handled by generic reconciliation code.
type Snapshot interface {
	Branch | PullRequest | Tag

	// Key is the stable identity of the entity within its repository.
	Key() string
	// HeadSHA is the commit the entity currently points at.
	HeadSHA() string
}

// Branch is the state of a branch.
type Branch struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Key implements Snapshot.
func (b Branch) Key() string { return b.Name }

// HeadSHA implements Snapshot.
func (b Branch) HeadSHA() string { return b.SHA }

// Tag is the state of a tag.
type Tag struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Key implements Snapshot.
func (t Tag) Key() string { return t.Name }

// HeadSHA implements Snapshot.
func (t Tag) HeadSHA() string { return t.SHA }

// Pull request states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// PullRequest is the state of a pull request.
type PullRequest struct {
	Number int    `json:"number"`
	SHA    string `json:"sha"`
	// Base is the target branch, Head the source branch.
	Base   string   `json:"base"`
	Head   string   `json:"head"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Author string   `json:"author"`
	Labels []string `json:"labels,omitempty"`
	// Mergeable is nil while the host is still computing mergeability.
	Mergeable      *bool  `json:"mergeable,omitempty"`
	State          string `json:"state"`
	ReviewDecision string `json:"reviewDecision,omitempty"`
	URL            string `json:"url"`
}

// Key implements Snapshot.
func (p PullRequest) Key() string { return strconv.Itoa(p.Number) }

// HeadSHA implements Snapshot.
func (p PullRequest) HeadSHA() string { return p.SHA }

// HasLabel reports whether the pull request carries the named label.
func (p PullRequest) HasLabel(name string) bool {
	return slices.Contains(p.Labels, name)
}

// IsOpen reports whether the pull request is open.
func (p PullRequest) IsOpen() bool { return p.State != StateClosed }

// Commit is a single commit in a commit delta.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// ZeroSHA is the all-zero object name used by git hosts for "no commit".
const ZeroSHA = "0000000000000000000000000000000000000000"
