package inmemorystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	outputs sync.Map // Key: Key.String(), Value: any
}

// New creates a new, empty output store.
func New() *Store {
	return &Store{}
}

// Put records the output of a step. Each key may be written exactly once.
func (s *Store) Put(ctx context.Context, key nodestore.Key, value any) error {
	if _, loaded := s.outputs.LoadOrStore(key.String(), value); loaded {
		return fmt.Errorf("%w: %s", nodestore.ErrAlreadyWritten, key)
	}
	ctxlog.FromContext(ctx).Debug("Stored step output.", "key", key.String())
	return nil
}

// Get retrieves a recorded output.
func (s *Store) Get(ctx context.Context, key nodestore.Key) (any, bool) {
	return s.outputs.Load(key.String())
}

// Keys returns the stored keys, sorted.
func (s *Store) Keys(ctx context.Context) []string {
	var keys []string
	s.outputs.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Snapshot returns a plain map copy of the store.
func (s *Store) Snapshot(ctx context.Context) map[string]any {
	out := make(map[string]any)
	s.outputs.Range(func(k, v any) bool {
		out[k.(string)] = v
		return true
	})
	return out
}

var _ nodestore.Store = (*Store)(nil)
