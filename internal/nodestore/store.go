// Package nodestore defines the Runtime Output Store: the only shared mutable
// structure of a job run.
//
// The store is write-once per key. A step with a single declared output
// writes under its own name; a step with several outputs writes one key per
// output, "step.output". A dependent reads a key only after the step that
// wrote it reported success, so implementations need nothing beyond
// insert-time atomicity.
package nodestore

import (
	"context"
	"errors"
)

// ErrAlreadyWritten is returned when a key is written twice.
var ErrAlreadyWritten = errors.New("output already written")

// Key addresses one stored output.
type Key struct {
	Step string
	// Output is empty for the sole output of a single-output step.
	Output string
}

func (k Key) String() string {
	if k.Output == "" {
		return k.Step
	}
	return k.Step + "." + k.Output
}

// Store is the interface for the Runtime Output Store.
//
// Implementations MUST be safe for concurrent use: workers write the outputs
// of independent steps at the same time.
type Store interface {
	// Put records a value. Writing an existing key fails with
	// ErrAlreadyWritten and leaves the first value in place.
	Put(ctx context.Context, key Key, value any) error

	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key Key) (any, bool)

	// Keys returns every stored key in string form, sorted.
	Keys(ctx context.Context) []string

	// Snapshot returns a copy of the store keyed by Key.String().
	Snapshot(ctx context.Context) map[string]any
}
