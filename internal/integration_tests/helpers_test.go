// Package integration_tests drives whole jobs through the application:
// documents on disk, compiled-in modules, artifacts and tracking.
package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/taskgraph/internal/app"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/testutil"
	"github.com/specialistvlad/taskgraph/internal/tracking"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// harness holds one job's documents and the sinks it writes to.
type harness struct {
	dir     string
	fs      afero.Fs
	tracker *tracking.Memory
	logs    *testutil.SafeBuffer
}

// setup writes the named documents into a fresh directory.
func setup(t *testing.T, files map[string]string) *harness {
	t.Helper()
	h := &harness{
		dir:     t.TempDir(),
		fs:      afero.NewMemMapFs(),
		tracker: tracking.NewMemory(),
		logs:    &testutil.SafeBuffer{},
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o600))
	}
	return h
}

// newApp builds an app over the harness directory. configure may adjust
// the configuration before the app is created.
func (h *harness) newApp(t *testing.T, configure func(*app.Config), modules ...registry.Module) *app.App {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.GraphPath = h.dir
	cfg.LogLevel = "debug"
	cfg.RetryInterval = time.Millisecond
	if configure != nil {
		configure(&cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := app.NewApp(h.logs, &cfg, app.WithModules(modules...), app.WithFs(h.fs), app.WithTracker(h.tracker))
	require.NoError(t, err)
	return a
}

// run executes the job once.
func (h *harness) run(t *testing.T, configure func(*app.Config), modules ...registry.Module) (*app.Result, error) {
	t.Helper()
	return h.newApp(t, configure, modules...).Run(context.Background())
}

func workers(n int) func(*app.Config) {
	return func(c *app.Config) { c.Workers = n }
}

// ExecutionRecord is the time window one step ran in.
type ExecutionRecord struct {
	Start, End time.Time
}

// timeline records when tasks ran, keyed by their "id" input.
type timeline struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	sleep   time.Duration
}

func newTimeline(sleep time.Duration) *timeline {
	return &timeline{records: make(map[string]*ExecutionRecord), sleep: sleep}
}

// task sleeps and records its window; it returns its id.
func (tl *timeline) task(ctx context.Context, in map[string]any) (any, error) {
	id, _ := in["id"].(string)
	start := time.Now()
	select {
	case <-time.After(tl.sleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	tl.mu.Lock()
	tl.records[id] = &ExecutionRecord{Start: start, End: time.Now()}
	tl.mu.Unlock()
	return id, nil
}

func (tl *timeline) get(id string) *ExecutionRecord {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.records[id]
}
