package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/spf13/afero"
)

// Policy decides what happens when two artifacts of one job write the same
// destination.
type Policy string

const (
	// PolicyError rejects the second write.
	PolicyError Policy = "error"
	// PolicyOverwrite replaces the earlier file and logs a warning.
	PolicyOverwrite Policy = "overwrite"
)

// Store writes artifact files below a root directory. It implements
// registry.ArtifactWriter.
type Store struct {
	fs     afero.Fs
	root   string
	policy Policy

	mu      sync.Mutex
	written map[string]bool
}

// NewStore creates a store rooted at root on fs.
func NewStore(fs afero.Fs, root string, policy Policy) *Store {
	if policy == "" {
		policy = PolicyError
	}
	return &Store{fs: fs, root: root, policy: policy, written: make(map[string]bool)}
}

// Write stores data under the relative destination name and returns the
// full path written.
func (s *Store) Write(ctx context.Context, name string, data []byte) (string, error) {
	path, err := s.destination(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written[path] {
		if s.policy != PolicyOverwrite {
			return "", fmt.Errorf("%w: %s", taskerr.ErrDuplicateArtifactDestination, path)
		}
		ctxlog.FromContext(ctx).Warn("Overwriting artifact written earlier in this job.", "path", path)
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	s.written[path] = true
	return path, nil
}

// destination resolves name below the root, rejecting paths that escape it.
func (s *Store) destination(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty artifact destination")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("artifact destination %q must be relative", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact destination %q escapes the artifacts directory", name)
	}
	return filepath.Join(s.root, clean), nil
}
