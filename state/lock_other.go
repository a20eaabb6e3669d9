/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

//go:build !unix

package state

// lockFile is a no-op where flock is unavailable; writers in one process are
// still serialized by File.mu.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
