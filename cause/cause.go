/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cause holds the result of a build decision.
//
// A Cause is immutable: its fields are only settable at construction time and
// accessors return copies. A Cause with Skip() true records that a rule
// explicitly decided not to build; with Skip() false it requests a build and
// carries the metadata used to parameterize it.
package cause

import (
	"fmt"
	"slices"
)

// Cause is a build decision produced by a rule.
type Cause struct {
	skip             bool
	headSHA          string
	shortDescription string
	title            string
	url              string
	labels           []string
	commentBody      string
	match            string
	state            string
}

// Option configures a Cause at construction.
type Option func(*Cause)

// New constructs a Cause requesting a build.
func New(shortDescription string, opts ...Option) *Cause {
	c := &Cause{shortDescription: shortDescription}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Skip constructs a Cause recording an explicit decision not to build.
func Skip(shortDescription string, opts ...Option) *Cause {
	c := New(shortDescription, opts...)
	c.skip = true
	return c
}

// Skipf is Skip with a formatted description.
func Skipf(format string, args ...any) *Cause {
	return Skip(fmt.Sprintf(format, args...))
}

// With returns a copy of c with opts applied. c itself is not modified.
func (c *Cause) With(opts ...Option) *Cause {
	cp := *c
	cp.labels = slices.Clone(c.labels)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// WithHeadSHA sets the commit the build should use.
func WithHeadSHA(sha string) Option {
	return func(c *Cause) { c.headSHA = sha }
}

// WithTitle sets the entity title.
func WithTitle(title string) Option {
	return func(c *Cause) { c.title = title }
}

// WithURL sets a link to the entity on the hosting service.
func WithURL(url string) Option {
	return func(c *Cause) { c.url = url }
}

// WithLabels sets the entity labels.
func WithLabels(labels ...string) Option {
	return func(c *Cause) { c.labels = slices.Clone(labels) }
}

// WithCommentBody records the comment that produced the decision.
func WithCommentBody(body string) Option {
	return func(c *Cause) { c.commentBody = body }
}

// WithMatch records the text a pattern rule matched.
func WithMatch(match string) Option {
	return func(c *Cause) { c.match = match }
}

// WithState records the entity state, e.g. open or closed.
func WithState(state string) Option {
	return func(c *Cause) { c.state = state }
}

// Skip reports whether the decision is to not build.
func (c *Cause) Skip() bool { return c.skip }

// HeadSHA returns the commit the decision applies to.
func (c *Cause) HeadSHA() string { return c.headSHA }

// ShortDescription returns a one-line human-readable reason.
func (c *Cause) ShortDescription() string { return c.shortDescription }

// Title returns the entity title, if any.
func (c *Cause) Title() string { return c.title }

// URL returns a link to the entity, if any.
func (c *Cause) URL() string { return c.url }

// Labels returns a copy of the entity labels.
func (c *Cause) Labels() []string { return slices.Clone(c.labels) }

// CommentBody returns the comment that produced the decision, if any.
func (c *Cause) CommentBody() string { return c.commentBody }

// Match returns the text a pattern rule matched, if any.
func (c *Cause) Match() string { return c.match }

// State returns the entity state, if any.
func (c *Cause) State() string { return c.state }

// String implements fmt.Stringer.
func (c *Cause) String() string {
	if c.skip {
		return fmt.Sprintf("skip: %s", c.shortDescription)
	}
	return fmt.Sprintf("build %s: %s", c.headSHA, c.shortDescription)
}
