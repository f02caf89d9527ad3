package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
types:
  model:
  scores: list(number)
  pair:
    tuple: [string, integer]
  maybe_score:
    optional: number

parameters:
  size: 100
  ratio:
    type: number
  label:
    type: optional(string)
    default: null

tasks:
  load:
    inputs:
      - name: size
        type: integer
    outputs:
      - data: list(number)
  split:
    plugin: builtin.split
    inputs:
      - data
      - name: ratio
        type: number
        required: false
    outputs:
      train: list(number)
      test: list(number)

graph:
  L:
    load: [$size]
  P:
    split:
      data: $L
      ratio: $ratio
  Q:
    task: split
    args: [$L]
    kwargs:
      ratio: 0.5
    dependencies: [P]
  R:
    load: 7

artifact_tasks:
  json_file:
    inputs: [contents]

artifacts:
  train_set:
    json_file:
      contents: $P.train
`

func TestParse(t *testing.T) {
	// --- Act ---
	m, err := Parse([]byte(sampleYAML))

	// --- Assert ---
	require.NoError(t, err)

	require.Len(t, m.Types, 4)
	assert.Nil(t, m.Types[0].Expr)
	assert.Equal(t, "list(number)", m.Types[1].Expr.String())
	assert.Equal(t, "tuple(string, integer)", m.Types[2].Expr.String())
	assert.Equal(t, "optional(number)", m.Types[3].Expr.String())

	require.Len(t, m.Parameters, 3)
	assert.Equal(t, "size", m.Parameters[0].Name)
	assert.Nil(t, m.Parameters[0].Type, "type is inferred from the default")
	assert.Equal(t, int64(100), m.Parameters[0].Default)
	assert.False(t, m.Parameters[1].HasDefault)
	assert.Equal(t, "number", m.Parameters[1].Type.String())
	assert.True(t, m.Parameters[2].HasDefault)
	assert.Nil(t, m.Parameters[2].Default)

	require.Len(t, m.Tasks, 2)
	assert.Equal(t, "", m.Tasks[0].Plugin)
	assert.Equal(t, "builtin.split", m.Tasks[1].Plugin)
	split := m.Tasks[1]
	require.Len(t, split.Inputs, 2)
	assert.Equal(t, "data", split.Inputs[0].Name)
	assert.Nil(t, split.Inputs[0].Type)
	assert.True(t, split.Inputs[0].Required)
	assert.False(t, split.Inputs[1].Required)
	require.Len(t, split.Outputs, 2)
	assert.Equal(t, "train", split.Outputs[0].Name)
	assert.Equal(t, "test", split.Outputs[1].Name)

	require.Len(t, m.Steps, 4)
	assert.Equal(t, []string{"L", "P", "Q", "R"}, []string{m.Steps[0].Name, m.Steps[1].Name, m.Steps[2].Name, m.Steps[3].Name})
	assert.Equal(t, "load", m.Steps[0].Task)
	assert.Equal(t, []any{"$size"}, m.Steps[0].Args)
	assert.Equal(t, map[string]any{"data": "$L", "ratio": "$ratio"}, m.Steps[1].Kwargs)
	assert.Equal(t, "split", m.Steps[2].Task)
	assert.Equal(t, []any{"$L"}, m.Steps[2].Args)
	assert.Equal(t, map[string]any{"ratio": 0.5}, m.Steps[2].Kwargs)
	assert.Equal(t, []string{"P"}, m.Steps[2].Dependencies)
	assert.Equal(t, []any{int64(7)}, m.Steps[3].Args, "a scalar is a single positional argument")

	require.Len(t, m.ArtifactTasks, 1)
	require.Len(t, m.Artifacts, 1)
	assert.Equal(t, "json_file", m.Artifacts[0].Task)
	assert.Equal(t, map[string]any{"contents": "$P.train"}, m.Artifacts[0].Kwargs)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "unknown section", doc: "steps: {}", wantErr: `unknown top-level section "steps"`},
		{name: "bad type", doc: "types:\n  x: set(int)", wantErr: "unknown type constructor"},
		{name: "two constructors", doc: "types:\n  x: {list: int, tuple: [int]}", wantErr: "exactly one constructor"},
		{name: "step without task", doc: "graph:\n  A: {dependencies: [B]}", wantErr: "does not name a task"},
		{name: "two short-form tasks", doc: "graph:\n  A: {load: 1, save: 2}", wantErr: "more than one task"},
		{name: "unknown long-form field", doc: "graph:\n  A: {task: load, argz: []}", wantErr: `unknown step field "argz"`},
		{name: "duplicate key", doc: "graph:\n  A: {load: 1}\n  A: {load: 2}", wantErr: `duplicate key "A"`},
		{name: "inputs not a list", doc: "tasks:\n  t: {inputs: {a: int}}", wantErr: "inputs must be a list"},
		{name: "not yaml", doc: "graph: [", wantErr: "yaml"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Steps)
}

func TestLoader_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("graph:\n  B: {noop: }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("tasks:\n  noop: {}\ngraph:\n  A: {noop: }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	m, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, m.Tasks, 1)
	require.Len(t, m.Steps, 2)
	assert.Equal(t, "A", m.Steps[0].Name, "files are read in lexical order")
	assert.Equal(t, "B", m.Steps[1].Name)
}

func TestParseScalar(t *testing.T) {
	assert.Equal(t, int64(3), ParseScalar("3"))
	assert.Equal(t, 2.5, ParseScalar("2.5"))
	assert.Equal(t, true, ParseScalar("true"))
	assert.Equal(t, "hello", ParseScalar("hello"))
	assert.Equal(t, []any{int64(1), int64(2)}, ParseScalar("[1, 2]"))
	assert.Nil(t, ParseScalar("null"))
	assert.Equal(t, "", ParseScalar(""))
}
