package artifacts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/executor"
	"github.com/specialistvlad/taskgraph/internal/inmemorystore"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/testutil"
	"github.com/specialistvlad/taskgraph/internal/tracking"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(ctx context.Context, w registry.ArtifactWriter, name string, in map[string]any) (string, error) {
	data, err := json.Marshal(in["contents"])
	if err != nil {
		return "", err
	}
	dest, _ := in["filename"].(string)
	if dest == "" {
		dest = name + ".json"
	}
	return w.Write(ctx, dest, data)
}

const jobDoc = `
tasks:
  load:
    outputs: [{rows: list(int)}]
  explode:
    outputs: [{v: int}]
  after:
    inputs: [{name: v, type: int}]
    outputs: [{v: int}]
artifact_tasks:
  json_file:
    plugin: json
    inputs:
      - {name: contents, type: any}
      - {name: filename, type: string, required: false}
graph:
  rows: {load: }
  step4: {explode: }
  step5: {after: [$step4]}
`

type job struct {
	fs      afero.Fs
	tracker *tracking.Memory
	ctx     context.Context
	run     func(artifacts string) (map[string]string, error)
}

func newJob(t *testing.T, policy Policy) *job {
	t.Helper()
	ctx, _ := testutil.Context(t)
	j := &job{fs: afero.NewMemMapFs(), tracker: tracking.NewMemory()}
	j.ctx = tracking.WithTracker(ctx, j.tracker)

	h := testutil.Handlers(&testutil.SimpleModule{
		Tasks: map[string]registry.TaskFunc{
			"load":    testutil.Const([]any{int64(1), int64(2)}),
			"explode": testutil.Fail("boom"),
			"after":   testutil.Const(int64(0)),
		},
		Serializers: map[string]registry.SerializeFunc{"json": writeJSON},
	})

	j.run = func(artifacts string) (map[string]string, error) {
		model := testutil.ParseModel(t, jobDoc, artifacts)
		g, plan := testutil.Compile(j.ctx, t, h, jobDoc, artifacts)
		ag, err := g.BuildArtifacts(j.ctx, model, builder.Options{HasSerializer: h.HasSerializer})
		require.NoError(t, err)

		ec, err := executor.NewExecutionContext(g, plan, h, inmemorystore.New(), nil)
		require.NoError(t, err)
		_, runErr := executor.New(ec, executor.Options{}).Run(j.ctx)
		require.ErrorIs(t, runErr, taskerr.ErrStepExecution, "step4 always fails")

		return NewResolver(ec, ag, h, NewStore(j.fs, "/artifacts", policy), nil).Run(j.ctx)
	}
	return j
}

func TestResolver_WritesArtifacts(t *testing.T) {
	// --- Arrange ---
	j := newJob(t, PolicyError)

	// --- Act ---
	locations, err := j.run(`
artifacts:
  dataset: {json_file: {contents: $rows, filename: data/rows.json}}
  copy: {json_file: [$rows]}
`)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"dataset": "/artifacts/data/rows.json",
		"copy":    "/artifacts/copy.json",
	}, locations)

	data, err := afero.ReadFile(j.fs, "/artifacts/data/rows.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(data))
	assert.Equal(t, locations, j.tracker.Artifacts())
}

func TestResolver_MissingSource(t *testing.T) {
	j := newJob(t, PolicyError)

	locations, err := j.run(`
artifacts:
  skipped: {json_file: [$step5]}
  dataset: {json_file: [$rows]}
`)

	require.ErrorIs(t, err, taskerr.ErrMissingArtifactSource)
	var ee *taskerr.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "skipped", ee.Step)
	assert.ErrorContains(t, err, `step "step5" has no output`)
	assert.Equal(t, map[string]string{"dataset": "/artifacts/dataset.json"}, locations,
		"other artifacts are still written")
}

func TestResolver_DuplicateDestination(t *testing.T) {
	doc := `
artifacts:
  first: {json_file: {contents: $rows, filename: out.json}}
  second: {json_file: {contents: $rows, filename: out.json}}
`
	t.Run("error", func(t *testing.T) {
		j := newJob(t, PolicyError)
		locations, err := j.run(doc)
		require.ErrorIs(t, err, taskerr.ErrDuplicateArtifactDestination)
		var ee *taskerr.ExecutionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "second", ee.Step)
		assert.Len(t, locations, 1)
	})

	t.Run("overwrite", func(t *testing.T) {
		j := newJob(t, PolicyOverwrite)
		locations, err := j.run(doc)
		require.NoError(t, err)
		assert.Len(t, locations, 2)
	})
}
