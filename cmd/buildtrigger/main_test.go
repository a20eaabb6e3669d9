/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/state"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const triggersYAML = `
triggers:
- id: main
  repository: https://github.com/org/repo
  branches:
    events:
    - type: branch-hash-changed
  pullRequests:
    events:
    - type: pr-opened
`

func setup(t *testing.T) (configPath, stateDir string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "triggers.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(triggersYAML), 0o600))
	stateDir = filepath.Join(dir, "state")
	t.Setenv("STATE_DIR", stateDir)
	t.Setenv("STATE_BUCKET", "")

	ctx := context.Background()
	branches, err := state.Open[entity.Branch](state.Backend{Dir: stateDir}, "main", "branch")
	require.NoError(t, err)
	require.NoError(t, branches.Put(ctx, "main", entity.Branch{Name: "main", SHA: "0123456789abcdef0123"}))
	prs, err := state.Open[entity.PullRequest](state.Backend{Dir: stateDir}, "main", "pull_request")
	require.NoError(t, err)
	require.NoError(t, prs.Put(ctx, "7", entity.PullRequest{Number: 7, SHA: "feed", Title: "Add widgets", State: entity.StateOpen}))
	return configPath, stateDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusTable(t *testing.T) {
	configPath, _ := setup(t)

	out, err := run(t, "status", "--config", configPath)
	require.NoError(t, err)
	for _, want := range []string{"main", "branch", "0123456789ab", "pull_request", `open "Add widgets"`} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789abcdef") {
		t.Errorf("status output should abbreviate SHAs:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	configPath, _ := setup(t)

	out, err := run(t, "status", "--config", configPath, "-o", "json")
	require.NoError(t, err)

	var got []trigger.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	want := map[string]entity.Branch{"main": {Name: "main", SHA: "0123456789abcdef0123"}}
	if diff := cmp.Diff(want, got[0].Branches); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, "status", "--config", configPath, "-o", "json", "other")
	require.NoError(t, err)
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("status of an unknown trigger = %s, want []", out)
	}
}

func TestForget(t *testing.T) {
	configPath, stateDir := setup(t)

	_, err := run(t, "forget", "--config", configPath, "main", "pull_request", "7")
	require.NoError(t, err)

	prs, err := state.Open[entity.PullRequest](state.Backend{Dir: stateDir}, "main", "pull_request")
	require.NoError(t, err)
	if _, ok, _ := prs.Get(context.Background(), "7"); ok {
		t.Error("pull request 7 still recorded after forget")
	}

	if _, err := run(t, "forget", "--config", configPath, "main", "commit", "x"); err == nil {
		t.Error("forget with an unknown kind should fail")
	}
	if _, err := run(t, "forget", "--config", configPath, "nope", "branch", "main"); err == nil {
		t.Error("forget of an unknown trigger should fail")
	}
}

func TestSchema(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	if _, ok := s["properties"]; !ok {
		t.Errorf("schema has no properties: %s", out)
	}
}
