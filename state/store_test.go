/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"chainguard.dev/buildtrigger/entity"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// memObjects is an in-memory objects implementation.
type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemObjects() *memObjects { return &memObjects{data: make(map[string][]byte)} }

func (m *memObjects) read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.data[name]
	if !ok {
		return nil, errNotFound
	}
	return d, nil
}

func (m *memObjects) write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[name] = data
	return nil
}

func (m *memObjects) remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[name]; !ok {
		return errNotFound
	}
	delete(m.data, name)
	return nil
}

func (m *memObjects) list(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for n := range m.data {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func stores(t *testing.T) map[string]Store[entity.Branch] {
	t.Helper()
	file, err := NewFile[entity.Branch](filepath.Join(t.TempDir(), "branches.json"))
	require.NoError(t, err)
	return map[string]Store[entity.Branch]{
		"memory": NewMemory[entity.Branch](),
		"file":   file,
		"bucket": newBucket[entity.Branch](newMemObjects(), "triggers/t1/branch"),
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "main")
			require.NoError(t, err)
			require.False(t, ok, "empty store should not have main")

			require.NoError(t, s.Put(ctx, "main", entity.Branch{Name: "main", SHA: "sha1"}))
			require.NoError(t, s.Put(ctx, "feature/x", entity.Branch{Name: "feature/x", SHA: "sha9"}))
			require.NoError(t, s.Put(ctx, "main", entity.Branch{Name: "main", SHA: "sha2"}))

			got, ok, err := s.Get(ctx, "main")
			require.NoError(t, err)
			require.True(t, ok)
			if diff := cmp.Diff(entity.Branch{Name: "main", SHA: "sha2"}, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}

			snap, err := Snapshot(ctx, s)
			require.NoError(t, err)
			want := map[string]entity.Branch{
				"main":      {Name: "main", SHA: "sha2"},
				"feature/x": {Name: "feature/x", SHA: "sha9"},
			}
			if diff := cmp.Diff(want, snap); diff != "" {
				t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, s.Delete(ctx, "main"))
			require.NoError(t, s.Delete(ctx, "main"), "deleting a missing key")
			_, ok, err = s.Get(ctx, "main")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestRangeStops(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"a", "b", "c"} {
				require.NoError(t, s.Put(ctx, k, entity.Branch{Name: k}))
			}
			calls := 0
			require.NoError(t, s.Range(ctx, func(string, entity.Branch) bool {
				calls++
				return false
			}))
			if calls != 1 {
				t.Errorf("Range() called fn %d times, want 1", calls)
			}
		})
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[entity.PullRequest]()
	require.NoError(t, s.Put(ctx, "1", entity.PullRequest{Number: 1, SHA: "a"}))

	snap, err := Snapshot[entity.PullRequest](ctx, s)
	require.NoError(t, err)
	snap["1"] = entity.PullRequest{Number: 1, SHA: "mutated"}
	delete(snap, "1")

	got, ok, _ := s.Get(ctx, "1")
	if !ok || got.SHA != "a" {
		t.Errorf("store changed through snapshot: %v, %v", got, ok)
	}
}

func TestFilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tags.json")

	s, err := NewFile[entity.Tag](path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "v1.0.0", entity.Tag{Name: "v1.0.0", SHA: "sha1"}))

	reopened, err := NewFile[entity.Tag](path)
	require.NoError(t, err)
	got, ok, err := reopened.Get(ctx, "v1.0.0")
	require.NoError(t, err)
	require.True(t, ok)
	if got.SHA != "sha1" {
		t.Errorf("SHA = %q, want sha1", got.SHA)
	}

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".state-*"))
	require.NoError(t, err)
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	if _, err := NewFile[entity.Branch](path); err == nil {
		t.Error("NewFile() should fail on a corrupt file")
	}
}

func TestFilePutFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s, err := NewFile[entity.Branch](path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "main", entity.Branch{Name: "main", SHA: "sha1"}))

	// A directory at the target path makes the write fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))
	s.path = blocked
	if err := s.Put(ctx, "main", entity.Branch{Name: "main", SHA: "sha2"}); err == nil {
		t.Fatal("Put() should fail")
	}

	s.path = path
	got, _, err := s.Get(ctx, "main")
	require.NoError(t, err)
	if got.SHA != "sha1" {
		t.Errorf("SHA = %q after failed write, want sha1", got.SHA)
	}
}

// A server and the forget command hold separate handles on one file.
func TestFileSharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "branch.json")
	server, err := NewFile[entity.Branch](path)
	require.NoError(t, err)
	cli, err := NewFile[entity.Branch](path)
	require.NoError(t, err)

	require.NoError(t, server.Put(ctx, "main", entity.Branch{Name: "main", SHA: "sha1"}))
	require.NoError(t, cli.Delete(ctx, "main"))

	if _, ok, err := server.Get(ctx, "main"); err != nil || ok {
		t.Errorf("server Get(main) = %v, %v after delete, want absent", ok, err)
	}
	require.NoError(t, server.Put(ctx, "dev", entity.Branch{Name: "dev", SHA: "sha2"}))

	reopened, err := NewFile[entity.Branch](path)
	require.NoError(t, err)
	got, err := Snapshot[entity.Branch](ctx, reopened)
	require.NoError(t, err)
	want := map[string]entity.Branch{"dev": {Name: "dev", SHA: "sha2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state on disk mismatch (-want +got):\n%s", diff)
	}
}

func TestBucketObjectNames(t *testing.T) {
	ctx := context.Background()
	objs := newMemObjects()
	b := newBucket[entity.Branch](objs, "t1/branch")
	require.NoError(t, b.Put(ctx, "feature/x", entity.Branch{Name: "feature/x", SHA: "s"}))

	names, _ := objs.list(ctx, "")
	if diff := cmp.Diff([]string{"t1/branch/feature%2Fx.json"}, names); diff != "" {
		t.Errorf("object names mismatch (-want +got):\n%s", diff)
	}
}

func TestBucketErrors(t *testing.T) {
	ctx := context.Background()
	objs := newMemObjects()
	objs.err = errors.New("503 backend unavailable")
	b := newBucket[entity.Branch](objs, "")

	if _, _, err := b.Get(ctx, "main"); err == nil {
		t.Error("Get() should surface the read error")
	}
	if err := b.Put(ctx, "main", entity.Branch{}); err == nil {
		t.Error("Put() should surface the write error")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open[entity.Tag](Backend{Dir: dir}, "t1", "tag")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "v1", entity.Tag{Name: "v1", SHA: "a"}))
	if _, err := os.Stat(filepath.Join(dir, "t1", "tag.json")); err != nil {
		t.Errorf("state file not written: %v", err)
	}

	m, err := Open[entity.Tag](Backend{}, "t1", "tag")
	require.NoError(t, err)
	if _, ok := m.(*Memory[entity.Tag]); !ok {
		t.Errorf("Open() with no backend = %T, want *Memory", m)
	}
}
