/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// objects is the slice of an object store the bucket-backed Store needs.
type objects interface {
	// read returns the object contents, or errNotFound.
	read(ctx context.Context, name string) ([]byte, error)
	write(ctx context.Context, name string, data []byte) error
	// remove deletes the object, or returns errNotFound.
	remove(ctx context.Context, name string) error
	list(ctx context.Context, prefix string) ([]string, error)
}

var errNotFound = errors.New("object not found")

// Bucket is a Store keeping one JSON object per key under a prefix of a
// Google Cloud Storage bucket.
type Bucket[T any] struct {
	objects objects
	prefix  string
}

var _ Store[int] = (*Bucket[int])(nil)

// NewGCS returns a Store backed by bucket. Object names are prefix followed
// by the escaped key and ".json".
func NewGCS[T any](client *storage.Client, bucket, prefix string) *Bucket[T] {
	return newBucket[T](gcsObjects{bucket: client.Bucket(bucket)}, prefix)
}

func newBucket[T any](o objects, prefix string) *Bucket[T] {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Bucket[T]{objects: o, prefix: prefix}
}

func (b *Bucket[T]) objectName(key string) string {
	return b.prefix + url.PathEscape(key) + ".json"
}

func (b *Bucket[T]) keyOf(name string) (string, bool) {
	base, ok := strings.CutSuffix(strings.TrimPrefix(name, b.prefix), ".json")
	if !ok || strings.Contains(base, "/") {
		return "", false
	}
	key, err := url.PathUnescape(base)
	if err != nil {
		return "", false
	}
	return key, true
}

// Get implements Store.
func (b *Bucket[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var v T
	data, err := b.objects.read(ctx, b.objectName(key))
	if errors.Is(err, errNotFound) {
		return v, false, nil
	} else if err != nil {
		return v, false, fmt.Errorf("reading state for %q: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decoding state for %q: %w", key, err)
	}
	return v, true, nil
}

// Put implements Store.
func (b *Bucket[T]) Put(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state for %q: %w", key, err)
	}
	if err := b.objects.write(ctx, b.objectName(key), data); err != nil {
		return fmt.Errorf("writing state for %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (b *Bucket[T]) Delete(ctx context.Context, key string) error {
	if err := b.objects.remove(ctx, b.objectName(key)); err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("deleting state for %q: %w", key, err)
	}
	return nil
}

// Range implements Store. Objects removed between listing and reading are
// skipped.
func (b *Bucket[T]) Range(ctx context.Context, fn func(key string, v T) bool) error {
	names, err := b.objects.list(ctx, b.prefix)
	if err != nil {
		return fmt.Errorf("listing state: %w", err)
	}
	for _, name := range names {
		key, ok := b.keyOf(name)
		if !ok {
			continue
		}
		v, found, err := b.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if !fn(key, v) {
			break
		}
	}
	return nil
}

type gcsObjects struct {
	bucket *storage.BucketHandle
}

func (g gcsObjects) read(ctx context.Context, name string) ([]byte, error) {
	r, err := g.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errNotFound
	} else if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g gcsObjects) write(ctx context.Context, name string, data []byte) error {
	w := g.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g gcsObjects) remove(ctx context.Context, name string) error {
	err := g.bucket.Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errNotFound
	}
	return err
}

func (g gcsObjects) list(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		} else if err != nil {
			return nil, err
		}
		if path.Ext(attrs.Name) == ".json" {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}
