/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package diag provides the diagnostic sinks handed to rules and the
// per-trigger error surface for pass-level failures.
package diag

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/chainguard-dev/clog"
)

// Sink receives human-readable diagnostics from rules and reconciliation.
type Sink interface {
	Printf(format string, args ...any)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Printf(string, ...any) {}

// Logger returns a Sink writing through the logger carried by ctx.
func Logger(ctx context.Context) Sink {
	return logSink{ctx: ctx}
}

type logSink struct {
	ctx context.Context
}

func (s logSink) Printf(format string, args ...any) {
	clog.InfoContextf(s.ctx, format, args...)
}

// Buffer is a Sink that retains lines in memory. It is safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

// Printf implements Sink.
func (b *Buffer) Printf(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the recorded lines.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.lines)
}

// Tee returns a Sink writing to every given sink.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Printf(format string, args ...any) {
	for _, s := range t {
		s.Printf(format, args...)
	}
}
