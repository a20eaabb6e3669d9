/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads trigger definitions from YAML and builds them into
// triggers ready for reconciliation.
//
// A configuration file looks like:
//
//	triggers:
//	- id: main-builds
//	  repository: https://github.com/org/repo
//	  interval: 5m
//	  skipFirstRun: true
//	  branches:
//	    restrictions:
//	      include: ["main", "release/**"]
//	    events:
//	    - type: branch-commit-message
//	      pattern: "\\[skip ci\\]"
//	      exclude: true
//	    - type: branch-hash-changed
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// File is the root of a configuration file.
type File struct {
	Triggers []Trigger `yaml:"triggers" json:"triggers" jsonschema:"required"`
}

// Trigger configures one trigger.
type Trigger struct {
	ID         string   `yaml:"id" json:"id" jsonschema:"required,pattern=^[A-Za-z0-9][A-Za-z0-9_.-]*$"`
	Repository string   `yaml:"repository" json:"repository" jsonschema:"required" jsonschema_description:"Clone or web URL of the repository, for example https://github.com/org/repo"`
	Interval   Duration `yaml:"interval,omitempty" json:"interval,omitempty"`

	// SkipFirstRun records entities seen for the first time without
	// evaluating them.
	SkipFirstRun bool `yaml:"skipFirstRun,omitempty" json:"skipFirstRun,omitempty"`

	Branches     *Kind `yaml:"branches,omitempty" json:"branches,omitempty"`
	PullRequests *Kind `yaml:"pullRequests,omitempty" json:"pullRequests,omitempty"`
	Tags         *Kind `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Kind configures how a trigger handles one entity kind.
type Kind struct {
	Restrictions Restrictions `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
	Events       []Event      `yaml:"events" json:"events" jsonschema:"required"`
}

// Restrictions are doublestar patterns matched against branch and tag names,
// or against the target branch of pull requests.
type Restrictions struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Event configures one rule of a chain. Which parameters apply depends on
// Type.
type Event struct {
	Type     string   `yaml:"type" json:"type" jsonschema:"required,enum=branch-created,enum=branch-hash-changed,enum=branch-commit-message,enum=pr-opened,enum=pr-commit-changed,enum=pr-closed,enum=pr-label-added,enum=pr-label-exists,enum=pr-label-not-exists,enum=pr-label-pattern,enum=pr-description-match,enum=pr-non-mergeable,enum=pr-number,enum=pr-comment-pattern,enum=tag-created,enum=tag-hash-changed"`
	Pattern  string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Exclude  bool     `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Skip     bool     `yaml:"skip,omitempty" json:"skip,omitempty"`
	Labels   []string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Numbers  []int    `yaml:"numbers,omitempty" json:"numbers,omitempty"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// JSONSchema describes Duration as a string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Polling interval as a Go duration, for example 5m. Zero or absent disables polling.",
		Examples:    []any{"30s", "5m", "1h"},
	}
}

// Load reads and parses the configuration at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data and checks its shape. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks identifiers and intervals. Rule parameters are checked by
// Build.
func (f *File) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(f.Triggers))
	for i, t := range f.Triggers {
		switch {
		case t.ID == "":
			errs = append(errs, fmt.Errorf("triggers[%d]: missing id", i))
		case !validID.MatchString(t.ID):
			errs = append(errs, fmt.Errorf("triggers[%d]: invalid id %q", i, t.ID))
		case seen[t.ID]:
			errs = append(errs, fmt.Errorf("triggers[%d]: duplicate id %q", i, t.ID))
		}
		seen[t.ID] = true
		if t.Repository == "" {
			errs = append(errs, fmt.Errorf("trigger %q: missing repository", t.ID))
		}
		if t.Interval < 0 {
			errs = append(errs, fmt.Errorf("trigger %q: negative interval", t.ID))
		}
		if t.Branches == nil && t.PullRequests == nil && t.Tags == nil {
			errs = append(errs, fmt.Errorf("trigger %q: no branches, pullRequests or tags configured", t.ID))
		}
	}
	return errors.Join(errs...)
}

// Schema returns the JSON schema of the configuration file.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
	}
	s := r.Reflect(&File{})
	s.Title = "buildtrigger configuration"
	return s
}
