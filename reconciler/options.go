/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reconciler

import (
	"chainguard.dev/buildtrigger/diag"
	"chainguard.dev/buildtrigger/metrics"
	"chainguard.dev/buildtrigger/retry"
)

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithRetry sets the retry policy for remote calls. The default is
// retry.DefaultConfig().
func WithRetry(cfg retry.Config) Option {
	return func(r *Reconciler) {
		r.retry = cfg
	}
}

// WithDiagnostics sends rule and filter diagnostics to sink instead of the
// context logger.
func WithDiagnostics(sink diag.Sink) Option {
	return func(r *Reconciler) {
		r.diagnostics = sink
	}
}

// WithErrors records pass failures in errs, typically shared by every
// reconciler of the process.
func WithErrors(errs *diag.Errors) Option {
	return func(r *Reconciler) {
		r.errors = errs
	}
}

// WithMetrics records passes on m.
func WithMetrics(m *metrics.Reconciler) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}
