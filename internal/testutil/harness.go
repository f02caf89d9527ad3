// Package testutil holds fixtures shared by the package tests: a log capture
// buffer, a compile helper that turns YAML documents into a planned graph,
// and stub task callables.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/dag"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/yaml"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context whose logger writes debug-level text to the
// returned buffer.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// ParseModel merges YAML documents into one model.
func ParseModel(t *testing.T, docs ...string) *config.Model {
	t.Helper()
	m := &config.Model{}
	for _, doc := range docs {
		part, err := yaml.Parse([]byte(doc))
		require.NoError(t, err)
		m.Merge(part)
	}
	return m
}

// Compile validates and plans YAML documents against h.
func Compile(ctx context.Context, t *testing.T, h *registry.Handlers, docs ...string) (*builder.Graph, *dag.Plan) {
	t.Helper()
	g, err := builder.Build(ctx, ParseModel(t, docs...), builder.Options{HasTask: h.HasTask})
	require.NoError(t, err)
	plan, err := dag.Resolve(ctx, g)
	require.NoError(t, err)
	return g, plan
}
