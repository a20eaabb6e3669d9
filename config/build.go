/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/event"
	"chainguard.dev/buildtrigger/event/branch"
	"chainguard.dev/buildtrigger/event/pullrequest"
	"chainguard.dev/buildtrigger/event/tag"
	"chainguard.dev/buildtrigger/state"
	"chainguard.dev/buildtrigger/trigger"
)

type factory[T entity.Snapshot] func(Event) (event.Rule[T], error)

var branchRules = map[string]factory[entity.Branch]{
	"branch-created":      fixed[entity.Branch](branch.Created{}),
	"branch-hash-changed": fixed[entity.Branch](branch.HashChanged{}),
	"branch-commit-message": func(e Event) (event.Rule[entity.Branch], error) {
		re, err := compile(e.Pattern)
		if err != nil {
			return nil, err
		}
		return &branch.CommitMessage{Pattern: re, Exclude: e.Exclude}, nil
	},
}

var pullRequestRules = map[string]factory[entity.PullRequest]{
	"pr-opened":         fixed[entity.PullRequest](pullrequest.Opened{}),
	"pr-commit-changed": fixed[entity.PullRequest](pullrequest.CommitChanged{}),
	"pr-closed":         fixed[entity.PullRequest](pullrequest.Closed{}),
	"pr-label-added": func(e Event) (event.Rule[entity.PullRequest], error) {
		if len(e.Labels) == 0 {
			return nil, errors.New("labels are required")
		}
		return &pullrequest.LabelAdded{Labels: e.Labels}, nil
	},
	"pr-label-exists": func(e Event) (event.Rule[entity.PullRequest], error) {
		if len(e.Labels) == 0 {
			return nil, errors.New("labels are required")
		}
		return &pullrequest.LabelExists{Labels: e.Labels, Skip: e.Skip}, nil
	},
	"pr-label-not-exists": func(e Event) (event.Rule[entity.PullRequest], error) {
		if len(e.Labels) == 0 {
			return nil, errors.New("labels are required")
		}
		return &pullrequest.LabelNotExists{Labels: e.Labels, Skip: e.Skip}, nil
	},
	"pr-label-pattern": func(e Event) (event.Rule[entity.PullRequest], error) {
		if len(e.Patterns) == 0 {
			return nil, errors.New("patterns are required")
		}
		res := make([]*regexp.Regexp, 0, len(e.Patterns))
		for _, p := range e.Patterns {
			re, err := compile(p)
			if err != nil {
				return nil, err
			}
			res = append(res, re)
		}
		return &pullrequest.LabelPattern{Patterns: res}, nil
	},
	"pr-description-match": func(e Event) (event.Rule[entity.PullRequest], error) {
		re, err := compile(e.Pattern)
		if err != nil {
			return nil, err
		}
		return &pullrequest.DescriptionMatch{Pattern: re, Skip: e.Skip}, nil
	},
	"pr-non-mergeable": func(e Event) (event.Rule[entity.PullRequest], error) {
		return &pullrequest.NonMergeable{Skip: e.Skip}, nil
	},
	"pr-number": func(e Event) (event.Rule[entity.PullRequest], error) {
		if len(e.Numbers) == 0 {
			return nil, errors.New("numbers are required")
		}
		return &pullrequest.Number{Numbers: e.Numbers, Skip: e.Skip}, nil
	},
	"pr-comment-pattern": func(e Event) (event.Rule[entity.PullRequest], error) {
		re, err := compile(e.Pattern)
		if err != nil {
			return nil, err
		}
		return &pullrequest.CommentPattern{Pattern: re}, nil
	},
}

var tagRules = map[string]factory[entity.Tag]{
	"tag-created":      fixed[entity.Tag](tag.Created{}),
	"tag-hash-changed": fixed[entity.Tag](tag.HashChanged{}),
}

func fixed[T entity.Snapshot](r event.Rule[T]) factory[T] {
	return func(Event) (event.Rule[T], error) { return r, nil }
}

func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, errors.New("pattern is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// RuleTypes returns the known event types, sorted.
func RuleTypes() []string {
	var types []string
	for k := range branchRules {
		types = append(types, k)
	}
	for k := range pullRequestRules {
		types = append(types, k)
	}
	for k := range tagRules {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// Build turns f into triggers whose stores are opened from backend. All
// configuration errors are reported together.
func Build(f *File, backend state.Backend) ([]*trigger.Trigger, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		triggers []*trigger.Trigger
		errs     []error
	)
	for _, c := range f.Triggers {
		t, err := buildTrigger(c, backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("trigger %q: %w", c.ID, err))
			continue
		}
		triggers = append(triggers, t)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return triggers, nil
}

func buildTrigger(c Trigger, backend state.Backend) (*trigger.Trigger, error) {
	t := &trigger.Trigger{
		ID:            c.ID,
		RepositoryURL: c.Repository,
		Interval:      time.Duration(c.Interval),
	}
	// An unparseable repository is not fatal here. It surfaces as a
	// configuration error of the trigger when a pass or hook resolves it.

	var errs []error
	if c.Branches != nil {
		cfg, err := buildKind(c.ID, entity.KindBranch, c.Branches, branchRules, c.SkipFirstRun, backend, trigger.NewRestriction[entity.Branch])
		if err != nil {
			errs = append(errs, fmt.Errorf("branches: %w", err))
		}
		t.Branches = cfg
	}
	if c.PullRequests != nil {
		cfg, err := buildKind(c.ID, entity.KindPullRequest, c.PullRequests, pullRequestRules, c.SkipFirstRun, backend, trigger.NewTargetBranchRestriction)
		if err != nil {
			errs = append(errs, fmt.Errorf("pullRequests: %w", err))
		} else {
			cfg.Filters = append([]trigger.Filter[entity.PullRequest]{trigger.SkipClosed{}}, cfg.Filters...)
		}
		t.PullRequests = cfg
	}
	if c.Tags != nil {
		cfg, err := buildKind(c.ID, entity.KindTag, c.Tags, tagRules, c.SkipFirstRun, backend, trigger.NewRestriction[entity.Tag])
		if err != nil {
			errs = append(errs, fmt.Errorf("tags: %w", err))
		}
		t.Tags = cfg
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, t.Validate()
}

func buildKind[T entity.Snapshot](
	id string,
	kind entity.Kind,
	k *Kind,
	rules map[string]factory[T],
	skipFirstRun bool,
	backend state.Backend,
	restrict func(include, exclude []string) (*trigger.Restriction[T], error),
) (*trigger.Config[T], error) {
	var errs []error
	cfg := &trigger.Config[T]{}

	if len(k.Restrictions.Include) > 0 || len(k.Restrictions.Exclude) > 0 {
		r, err := restrict(k.Restrictions.Include, k.Restrictions.Exclude)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Filters = append(cfg.Filters, r)
		}
	}
	if skipFirstRun {
		cfg.Filters = append(cfg.Filters, trigger.SkipFirstRun[T]{})
	}

	for i, e := range k.Events {
		f, ok := rules[e.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("events[%d]: unknown type %q for %s", i, e.Type, kind))
			continue
		}
		rule, err := f(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("events[%d] (%s): %w", i, e.Type, err))
			continue
		}
		cfg.Chain = append(cfg.Chain, rule)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	store, err := state.Open[T](backend, id, kind.String())
	if err != nil {
		return nil, fmt.Errorf("opening %s state: %w", kind, err)
	}
	cfg.Store = store
	return cfg, nil
}
