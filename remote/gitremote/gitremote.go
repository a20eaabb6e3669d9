/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitremote implements remote.Client over plain git, for hosts
// without an API. Each repository is mirrored into a bare clone under a
// cache directory. Pull requests and commit statuses are not available.
package gitremote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/remote"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const (
	// maxCommits bounds a commit delta.
	maxCommits = 250
	// maxBase bounds the ancestors of the base commit that are excluded from
	// a delta.
	maxBase = 2000
)

var refSpecs = []gitconfig.RefSpec{
	"+refs/heads/*:refs/heads/*",
	"+refs/tags/*:refs/tags/*",
}

// repoURL resolves the clone URL of a repository. Tests point it at local
// paths.
var repoURL = func(r remote.Repository) string {
	host := r.Host
	if host == "" {
		host = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, r.Owner, r.Name)
}

// Client mirrors repositories with go-git.
type Client struct {
	dir         string
	tokenSource oauth2.TokenSource

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ remote.Client = (*Client)(nil)

// New returns a Client caching mirrors under dir. A nil tokenSource clones
// anonymously.
func New(dir string, tokenSource oauth2.TokenSource) *Client {
	return &Client{dir: dir, tokenSource: tokenSource, locks: make(map[string]*sync.Mutex)}
}

func (c *Client) lock(repo remote.Repository) func() {
	c.mu.Lock()
	l, ok := c.locks[repo.String()]
	if !ok {
		l = &sync.Mutex{}
		c.locks[repo.String()] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (c *Client) auth() (transport.AuthMethod, error) {
	if c.tokenSource == nil {
		return nil, nil
	}
	tok, err := c.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: tok.AccessToken}, nil
}

// mirror opens the mirror of repo, creating it if needed, and fetches every
// branch and tag. The caller holds the repository lock.
func (c *Client) mirror(ctx context.Context, repo remote.Repository) (*git.Repository, error) {
	path := filepath.Join(c.dir, repo.Host, repo.Owner, repo.Name+".git")
	r, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating mirror directory: %w", err)
		}
		r, err = git.PlainInit(path, true)
		if err != nil {
			return nil, fmt.Errorf("initializing mirror of %s: %w", repo, err)
		}
		if _, err := r.CreateRemote(&gitconfig.RemoteConfig{Name: git.DefaultRemoteName, URLs: []string{repoURL(repo)}}); err != nil {
			return nil, fmt.Errorf("configuring mirror of %s: %w", repo, err)
		}
		clog.FromContext(ctx).Infof("Created mirror of %s in %s", repo, path)
	} else if err != nil {
		return nil, fmt.Errorf("opening mirror of %s: %w", repo, err)
	}

	auth, err := c.auth()
	if err != nil {
		return nil, err
	}
	err = r.FetchContext(ctx, &git.FetchOptions{RefSpecs: refSpecs, Auth: auth, Force: true, Prune: true, Tags: git.NoTags})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate), errors.Is(err, transport.ErrEmptyRemoteRepository):
		return r, nil
	case errors.Is(err, transport.ErrRepositoryNotFound), errors.Is(err, transport.ErrAuthenticationRequired):
		return nil, fmt.Errorf("fetching %s: %w", repo, err)
	default:
		// Network and server failures are worth another attempt.
		return nil, remote.Transient(fmt.Errorf("fetching %s: %w", repo, err))
	}
}

// ListBranches implements remote.Client.
func (c *Client) ListBranches(ctx context.Context, repo remote.Repository) ([]entity.Branch, error) {
	defer c.lock(repo)()
	r, err := c.mirror(ctx, repo)
	if err != nil {
		return nil, err
	}
	iter, err := r.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing branches of %s: %w", repo, err)
	}
	var out []entity.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, entity.Branch{Name: ref.Name().Short(), SHA: ref.Hash().String()})
		return nil
	})
	return out, err
}

// ListTags implements remote.Client. Annotated tags resolve to the commit
// they point at.
func (c *Client) ListTags(ctx context.Context, repo remote.Repository) ([]entity.Tag, error) {
	defer c.lock(repo)()
	r, err := c.mirror(ctx, repo)
	if err != nil {
		return nil, err
	}
	iter, err := r.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", repo, err)
	}
	var out []entity.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		sha := ref.Hash()
		if tag, err := r.TagObject(sha); err == nil {
			if commit, err := tag.Commit(); err == nil {
				sha = commit.Hash
			}
		}
		out = append(out, entity.Tag{Name: ref.Name().Short(), SHA: sha.String()})
		return nil
	})
	return out, err
}

// ListPullRequests implements remote.Client.
func (*Client) ListPullRequests(context.Context, remote.Repository) ([]entity.PullRequest, error) {
	return nil, remote.ErrUnsupported
}

// PostCommitStatus implements remote.Client.
func (*Client) PostCommitStatus(context.Context, remote.Repository, string, remote.Status) error {
	return remote.ErrUnsupported
}

// CompareCommits implements remote.Client. The mirror is only fetched when
// toSHA is not known locally.
func (c *Client) CompareCommits(ctx context.Context, repo remote.Repository, fromSHA, toSHA string) ([]entity.Commit, error) {
	defer c.lock(repo)()

	path := filepath.Join(c.dir, repo.Host, repo.Owner, repo.Name+".git")
	to := plumbing.NewHash(toSHA)
	r, err := git.PlainOpen(path)
	if err == nil {
		if _, err = r.CommitObject(to); err != nil {
			r = nil
		}
	}
	if r == nil {
		if r, err = c.mirror(ctx, repo); err != nil {
			return nil, err
		}
	}

	head, err := r.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s of %s: %w", toSHA, repo, err)
	}
	if fromSHA == "" || fromSHA == entity.ZeroSHA {
		return []entity.Commit{toEntity(head)}, nil
	}

	base, err := ancestors(r, plumbing.NewHash(fromSHA), maxBase)
	if err != nil {
		return nil, fmt.Errorf("reading history of %s in %s: %w", fromSHA, repo, err)
	}
	commits, err := walk(head, base, maxCommits)
	if err != nil {
		return nil, fmt.Errorf("comparing %s...%s in %s: %w", fromSHA, toSHA, repo, err)
	}
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Committer.When.Before(commits[j].Committer.When)
	})
	out := make([]entity.Commit, 0, len(commits))
	for _, commit := range commits {
		out = append(out, toEntity(commit))
	}
	return out, nil
}

func toEntity(c *object.Commit) entity.Commit {
	return entity.Commit{SHA: c.Hash.String(), Message: c.Message}
}

// ancestors returns up to limit commits reachable from h, h included. A base
// commit missing from the mirror yields an empty set.
func ancestors(r *git.Repository, h plumbing.Hash, limit int) (map[plumbing.Hash]bool, error) {
	set := make(map[plumbing.Hash]bool)
	start, err := r.CommitObject(h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return set, nil
	} else if err != nil {
		return nil, err
	}
	iter := object.NewCommitIterBFS(start, nil, nil)
	defer iter.Close()
	err = iter.ForEach(func(c *object.Commit) error {
		set[c.Hash] = true
		if len(set) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	return set, err
}

// walk collects up to limit commits reachable from head without passing
// through base.
func walk(head *object.Commit, base map[plumbing.Hash]bool, limit int) ([]*object.Commit, error) {
	if base[head.Hash] {
		return nil, nil
	}
	var out []*object.Commit
	iter := object.NewCommitIterBFS(head, base, nil)
	defer iter.Close()
	err := iter.ForEach(func(c *object.Commit) error {
		out = append(out, c)
		if len(out) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	return out, err
}
