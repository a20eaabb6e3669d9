/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package remote

import (
	"context"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/retry"
)

// Retrying wraps c so that every call is retried on transient failures
// according to cfg.
func Retrying(c Client, cfg retry.Config) Client {
	if r, ok := c.(*retrying); ok {
		c = r.next
	}
	return &retrying{next: c, cfg: cfg}
}

type retrying struct {
	next Client
	cfg  retry.Config
}

var _ Client = (*retrying)(nil)

func (r *retrying) ListBranches(ctx context.Context, repo Repository) ([]entity.Branch, error) {
	return retry.Do(ctx, r.cfg, "list branches "+repo.FullName(), IsTransient, func(ctx context.Context) ([]entity.Branch, error) {
		return r.next.ListBranches(ctx, repo)
	})
}

func (r *retrying) ListPullRequests(ctx context.Context, repo Repository) ([]entity.PullRequest, error) {
	return retry.Do(ctx, r.cfg, "list pull requests "+repo.FullName(), IsTransient, func(ctx context.Context) ([]entity.PullRequest, error) {
		return r.next.ListPullRequests(ctx, repo)
	})
}

func (r *retrying) ListTags(ctx context.Context, repo Repository) ([]entity.Tag, error) {
	return retry.Do(ctx, r.cfg, "list tags "+repo.FullName(), IsTransient, func(ctx context.Context) ([]entity.Tag, error) {
		return r.next.ListTags(ctx, repo)
	})
}

func (r *retrying) CompareCommits(ctx context.Context, repo Repository, fromSHA, toSHA string) ([]entity.Commit, error) {
	return retry.Do(ctx, r.cfg, "compare commits "+repo.FullName(), IsTransient, func(ctx context.Context) ([]entity.Commit, error) {
		return r.next.CompareCommits(ctx, repo, fromSHA, toSHA)
	})
}

func (r *retrying) PostCommitStatus(ctx context.Context, repo Repository, sha string, status Status) error {
	_, err := retry.Do(ctx, r.cfg, "post commit status "+repo.FullName(), IsTransient, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.PostCommitStatus(ctx, repo, sha, status)
	})
	return err
}
