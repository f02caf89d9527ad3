package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/app"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graph = `
parameters:
  n: 1
tasks:
  echo:
    inputs: [{name: v, type: int}]
    outputs: [{v: int}]
graph:
  second: {echo: [$first]}
  first: {echo: [$n]}
`

func writeGraph(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func echo(_ context.Context, in map[string]any) (any, error) {
	return in["v"], nil
}

func execute(t *testing.T, rec *testutil.Recorder, args ...string) (string, error) {
	t.Helper()
	tasks := map[string]registry.TaskFunc{"echo": echo}
	if rec != nil {
		tasks["echo"] = rec.Wrap("echo", echo)
	}
	var out, logs bytes.Buffer
	err := Execute(context.Background(), args, &out, &logs,
		app.WithModules(&testutil.SimpleModule{Tasks: tasks}),
		app.WithFs(afero.NewMemMapFs()),
	)
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitOK
	}
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestValidate(t *testing.T) {
	out, err := execute(t, nil, "validate", writeGraph(t, graph))
	require.NoError(t, err)
	assert.Equal(t, "graph is valid\n", out)
}

func TestPlan(t *testing.T) {
	out, err := execute(t, nil, "plan", writeGraph(t, graph))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", out)
}

func TestRun_ParamOverride(t *testing.T) {
	// --- Arrange ---
	rec := testutil.NewRecorder()

	// --- Act ---
	out, err := execute(t, rec, "run", writeGraph(t, graph), "--param", "n=5000", "--workers", "1")

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Equal(t, []string{"echo", "echo"}, rec.Calls())
	assert.Equal(t, int64(5000), rec.Inputs("echo")["v"])
}

func TestExitCodes(t *testing.T) {
	invalid := `
tasks:
  echo:
    inputs: [{name: v, type: int}]
graph:
  a: {echo: ["text"]}
`
	noCallable := `
tasks:
  boom: {}
graph:
  a: {boom: }
`
	testCases := []struct {
		name string
		args []string
		code int
	}{
		{"missing graph argument", []string{"run"}, ExitUsage},
		{"unknown flag", []string{"plan", "--nope", "x"}, ExitUsage},
		{"bad param syntax", []string{"run", writeGraph(t, graph), "--param", "n"}, ExitUsage},
		{"invalid config", []string{"run", writeGraph(t, graph), "--workers", "0"}, ExitUsage},
		{"missing file", []string{"validate", filepath.Join(t.TempDir(), "none.yaml")}, ExitUsage},
		{"type mismatch", []string{"validate", writeGraph(t, invalid)}, ExitValidation},
		{"undeclared param", []string{"run", writeGraph(t, graph), "--param", "m=1"}, ExitValidation},
		{"task without callable", []string{"run", writeGraph(t, noCallable)}, ExitValidation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, nil, tc.args...)
			assert.Equal(t, tc.code, exitCode(t, err))
		})
	}
}

func TestRun_ExecutionFailure(t *testing.T) {
	failing := `
tasks:
  fail: {outputs: [{v: int}]}
graph:
  a: {fail: }
`
	var out, logs bytes.Buffer
	err := Execute(context.Background(), []string{"run", writeGraph(t, failing)}, &out, &logs,
		app.WithModules(&testutil.SimpleModule{Tasks: map[string]registry.TaskFunc{"fail": testutil.Fail("boom")}}),
		app.WithFs(afero.NewMemMapFs()),
	)
	assert.Equal(t, ExitExecution, exitCode(t, err))
	assert.ErrorContains(t, err, "boom")
	assert.Contains(t, out.String(), "failed")
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"n=3", "name=resnet", "on=true", "list=[1, 2]", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"name": "resnet",
		"on":   true,
		"list": []any{int64(1), int64(2)},
		"eq":   "a=b",
	}, got)
}
