/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry runs fallible remote operations with a bounded number of
// attempts and a fixed delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
)

// ErrInterrupted is returned when the wait between attempts is cancelled.
// The returned error also wraps the context error.
var ErrInterrupted = errors.New("retry interrupted")

// Config configures retry behavior for remote calls.
type Config struct {
	// Retries is the total number of attempts, including the first (default: 3).
	Retries int
	// Delay is the fixed wait between attempts (default: 2s).
	Delay time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c Config) Validate() error {
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	if c.Delay < 0 {
		return errors.New("delay cannot be negative")
	}
	return nil
}

// DefaultConfig returns three attempts spaced two seconds apart.
func DefaultConfig() Config {
	return Config{
		Retries: 3,
		Delay:   2 * time.Second,
	}
}

// Do executes fn up to cfg.Retries times.
//
// Errors for which isTransient returns false are returned immediately. The
// error from the final attempt is returned unchanged. If ctx is cancelled
// while waiting between attempts, Do stops and returns an error wrapping both
// ErrInterrupted and ctx.Err().
func Do[T any](ctx context.Context, cfg Config, operation string, isTransient func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	attempts := max(cfg.Retries, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) || attempt == attempts {
			return result, err
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt).
			With("retries", attempts).
			With("delay", cfg.Delay).
			With("error", err.Error()).
			Debug("Transient failure, retrying")

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, fmt.Errorf("%s: %w: %w", operation, ErrInterrupted, ctx.Err())
		case <-timer.C:
		}
	}

	return result, err
}
