package serialize

import (
	"context"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/artifacts"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	v := map[string]any{"mean": 2.5, "count": int64(4)}

	testCases := []struct {
		format string
		value  any
		want   string
	}{
		{FormatJSON, v, "{\n  \"count\": 4,\n  \"mean\": 2.5\n}\n"},
		{FormatYAML, v, "count: 4\nmean: 2.5\n"},
		{FormatText, "hello", "hello\n"},
		{FormatText, "done\n", "done\n"},
		{FormatText, int64(7), "7\n"},
		{FormatText, nil, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			data, err := Encode(tc.format, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))
		})
	}

	_, err := Encode("xml", v)
	assert.ErrorContains(t, err, "unsupported format")
}

func TestSerializer_WritesThroughStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := artifacts.NewStore(fs, "out", artifacts.PolicyError)
	h := registry.NewHandlers()
	(&Module{}).Register(h)

	fn, ok := h.Serializer("serialize.json")
	require.True(t, ok)

	// --- Act ---
	loc, err := fn(context.Background(), store, "summary", map[string]any{"contents": []any{int64(1), int64(2)}})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "out/summary.json", loc)
	data, err := afero.ReadFile(fs, loc)
	require.NoError(t, err)
	assert.Equal(t, "[\n  1,\n  2\n]\n", string(data))

	fn, _ = h.Serializer("serialize.text")
	loc, err = fn(context.Background(), store, "note", map[string]any{"contents": "ok", "filename": "notes/run.log"})
	require.NoError(t, err)
	assert.Equal(t, "out/notes/run.log", loc)
}

func TestFilename(t *testing.T) {
	name, err := Filename("summary", FormatYAML, nil)
	require.NoError(t, err)
	assert.Equal(t, "summary.yaml", name)

	_, err = Filename("summary", FormatYAML, map[string]any{"filename": int64(3)})
	assert.ErrorContains(t, err, "input 'filename'")
}
