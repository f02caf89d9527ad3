package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/taskgraph/internal/executor"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/testutil"
	"github.com/specialistvlad/taskgraph/internal/tracking"
	"github.com/specialistvlad/taskgraph/modules/serialize"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumGraph = `
parameters:
  size: 3
tasks:
  make:
    inputs: [{name: n, type: int}]
    outputs: [{values: list(int)}]
  total:
    inputs: [{name: values, type: list(int)}]
    outputs: [{sum: int}]
artifact_tasks:
  json_file:
    plugin: serialize.json
    inputs:
      - {name: contents, type: any}
      - {name: filename, type: string, required: false}
graph:
  sum: {total: [$gen]}
  gen: {make: [$size]}
artifacts:
  result: {json_file: {contents: $sum}}
`

func makeValues(_ context.Context, in map[string]any) (any, error) {
	n := in["n"].(int64)
	out := make([]any, 0, n)
	for i := int64(1); i <= n; i++ {
		out = append(out, i)
	}
	return out, nil
}

func total(_ context.Context, in map[string]any) (any, error) {
	var sum int64
	for _, v := range in["values"].([]any) {
		sum += v.(int64)
	}
	return sum, nil
}

// writeGraph stores doc in a fresh directory and returns its path.
func writeGraph(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

type testApp struct {
	*App
	fs      afero.Fs
	tracker *tracking.Memory
	logs    *testutil.SafeBuffer
}

func newTestApp(t *testing.T, cfg *Config, tasks map[string]registry.TaskFunc) *testApp {
	t.Helper()
	ta := &testApp{fs: afero.NewMemMapFs(), tracker: tracking.NewMemory(), logs: &testutil.SafeBuffer{}}
	a, err := NewApp(ta.logs, cfg,
		WithModules(&testutil.SimpleModule{Tasks: tasks}, &serialize.Module{}),
		WithFs(ta.fs),
		WithTracker(ta.tracker),
	)
	require.NoError(t, err)
	ta.App = a
	return ta
}

func testConfig(graphPath string) *Config {
	cfg := DefaultConfig()
	cfg.GraphPath = graphPath
	cfg.LogLevel = "debug"
	cfg.RetryInterval = time.Millisecond
	return &cfg
}

func TestApp_Run(t *testing.T) {
	// --- Arrange ---
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	cfg.Params = map[string]any{"size": int64(4)}
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues, "total": total})

	// --- Act ---
	res, err := ta.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, executor.JobSucceeded, res.Report.Status)
	assert.Equal(t, []string{"gen", "sum"}, res.Report.Order)
	assert.Equal(t, int64(10), res.Report.Outputs["sum"])

	wantPath := filepath.Join("artifacts", "result.json")
	assert.Equal(t, map[string]string{"result": wantPath}, res.Artifacts)
	data, err := afero.ReadFile(ta.fs, wantPath)
	require.NoError(t, err)
	assert.Equal(t, "10\n", string(data))

	assert.Equal(t, map[string]any{"size": int64(4)}, ta.tracker.Params())
	assert.Equal(t, res.Artifacts, ta.tracker.Artifacts())
	for _, r := range ta.tracker.Records("") {
		assert.Equal(t, res.JobID, r.Job)
	}

	logs := ta.logs.String()
	assert.Contains(t, logs, "🚀 Starting concurrent execution...")
	assert.Contains(t, logs, "🏁 Execution finished.")
	assert.Contains(t, logs, "job_id="+res.JobID)
}

func TestApp_Run_TrackingFile(t *testing.T) {
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	cfg.TrackingFile = "runs.jsonl"
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues, "total": total})

	_, err := ta.Run(context.Background())
	require.NoError(t, err)

	data, err := afero.ReadFile(ta.fs, "runs.jsonl")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"param","job"`)
	assert.Contains(t, string(data), `"kind":"artifact"`)
}

func TestApp_Run_ValidationErrorsAreNotRetried(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		params  map[string]any
		wantErr error
	}{
		{
			name: "cycle",
			doc: `
tasks:
  t: {outputs: [{v: any}]}
graph:
  a: {task: t, dependencies: [b]}
  b: {task: t, dependencies: [a]}
`,
			wantErr: taskerr.ErrCyclicDependency,
		},
		{
			name:    "undeclared parameter value",
			doc:     sumGraph,
			params:  map[string]any{"nope": int64(1)},
			wantErr: taskerr.ErrUndeclaredParameter,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(writeGraph(t, "job.yaml", tc.doc))
			cfg.JobAttempts = 3
			cfg.Params = tc.params
			var calls atomic.Int32
			count := func(context.Context, map[string]any) (any, error) {
				calls.Add(1)
				return nil, nil
			}
			ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"t": count, "make": count, "total": count})

			res, err := ta.Run(context.Background())

			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, taskerr.IsValidation(err))
			assert.LessOrEqual(t, res.Attempts, 1)
			assert.Zero(t, calls.Load(), "no task runs for an invalid job")
		})
	}
}

func TestApp_Run_RetriesFailedJobs(t *testing.T) {
	// --- Arrange ---
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	cfg.JobAttempts = 3
	var calls atomic.Int32
	flaky := func(ctx context.Context, in map[string]any) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return makeValues(ctx, in)
	}
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": flaky, "total": total})

	// --- Act ---
	res, err := ta.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int64(6), res.Report.Outputs["sum"])
	assert.Len(t, ta.tracker.Params(), 1, "parameters are tracked once per job")
}

func TestApp_Run_FailedJobStillWritesReachableArtifacts(t *testing.T) {
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues, "total": testutil.Fail("boom")})

	res, err := ta.Run(context.Background())

	require.ErrorIs(t, err, taskerr.ErrStepExecution)
	require.ErrorIs(t, err, taskerr.ErrMissingArtifactSource)
	assert.False(t, taskerr.IsValidation(err))
	assert.Equal(t, executor.JobFailed, res.Report.Status)
	assert.Empty(t, res.Artifacts)
}

func TestApp_PlanAndValidate(t *testing.T) {
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues, "total": total})

	require.NoError(t, ta.Validate(context.Background()))
	order, err := ta.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gen", "sum"}, order)

	t.Run("missing callable", func(t *testing.T) {
		ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues})
		err := ta.Validate(context.Background())
		assert.ErrorIs(t, err, taskerr.ErrUnknownTask)
	})
}

func TestApp_LoadMixedDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.hcl"), []byte(`
task "make" {
  input "n" { type = integer }
  output "values" { type = list(integer) }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.yaml"), []byte(`
graph:
  gen: {make: [2]}
`), 0o644))

	ta := newTestApp(t, testConfig(dir), map[string]registry.TaskFunc{"make": makeValues})
	order, err := ta.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, order)

	_, err = loadersFor(filepath.Join(dir, "missing"))
	assert.Error(t, err)
	empty := t.TempDir()
	_, err = loadersFor(empty)
	assert.ErrorContains(t, err, "no graph documents")
}

func TestApp_HealthAndMetricsHandler(t *testing.T) {
	cfg := testConfig(writeGraph(t, "job.yaml", sumGraph))
	ta := newTestApp(t, cfg, map[string]registry.TaskFunc{"make": makeValues, "total": total})
	_, err := ta.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(ta.handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `taskgraph_job_runs_total{status="succeeded"} 1`)
	assert.Contains(t, string(body), `taskgraph_artifacts_total{status="succeeded",task="json_file"} 1`)
}

func TestLoadConfig_Params(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		cfg, err := LoadConfig("", map[string]any{
			"graph_path": "g.yaml",
			"params":     map[string]any{"sample_size": 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"sample_size": int64(5000)}, cfg.Params)
	})

	t.Run("config file and overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("graph_path: g.yaml\nparams:\n  label: weekly\n  size: 3\n"), 0o644))

		cfg, err := LoadConfig(path, map[string]any{"params": map[string]any{"size": 7}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"label": "weekly", "size": int64(7)}, cfg.Params)
	})

	t.Run("no params", func(t *testing.T) {
		cfg, err := LoadConfig("", map[string]any{"graph_path": "g.yaml"})
		require.NoError(t, err)
		assert.Empty(t, cfg.Params)
	})
}
