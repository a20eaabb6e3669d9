/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package state

import (
	"path/filepath"

	"cloud.google.com/go/storage"
)

// Backend selects where trigger stores live. With a Client, stores are kept
// in Bucket; with a Dir, in JSON files below it; otherwise in memory.
type Backend struct {
	Dir    string
	Client *storage.Client
	Bucket string
}

// Open returns the store for one entity kind of a trigger.
func Open[T any](b Backend, triggerID, kind string) (Store[T], error) {
	switch {
	case b.Client != nil:
		return NewGCS[T](b.Client, b.Bucket, triggerID+"/"+kind), nil
	case b.Dir != "":
		return NewFile[T](filepath.Join(b.Dir, triggerID, kind+".json"))
	default:
		return NewMemory[T](), nil
	}
}
