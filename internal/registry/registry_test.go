package registry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, map[string]any) (any, error) { return nil, nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()

	require.NoError(t, r.Register("load", &Signature{}))
	require.NoError(t, r.Register("train", &Signature{Plugin: "sklearn.fit"}))

	sig, err := r.Lookup("load")
	require.NoError(t, err)
	assert.Equal(t, "load", sig.Name)
	assert.Equal(t, "load", sig.Plugin, "plugin defaults to the task name")

	sig, err = r.Lookup("train")
	require.NoError(t, err)
	assert.Equal(t, "sklearn.fit", sig.Plugin)

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, taskerr.ErrUnknownTask)

	err = r.Register("load", &Signature{})
	assert.ErrorIs(t, err, taskerr.ErrDuplicateTask)

	assert.Equal(t, []string{"load", "train"}, r.Names())
}

func TestSignature_Accessors(t *testing.T) {
	sig := &Signature{
		Inputs: []*Param{
			{Name: "x", Type: types.IntegerType, Required: true, Position: 0},
			{Name: "y", Type: types.IntegerType, Position: 1},
		},
		Outputs: []*Output{{Name: "sum", Type: types.IntegerType}},
	}

	p, ok := sig.Input("y")
	require.True(t, ok)
	assert.Equal(t, 1, p.Position)
	_, ok = sig.Input("z")
	assert.False(t, ok)

	out, ok := sig.SoleOutput()
	require.True(t, ok)
	assert.Equal(t, "sum", out.Name)

	sig.Outputs = append(sig.Outputs, &Output{Name: "carry", Type: types.BooleanType})
	_, ok = sig.SoleOutput()
	assert.False(t, ok)
	assert.Equal(t, []string{"sum", "carry"}, sig.OutputNames())
}

func TestHandlers(t *testing.T) {
	h := NewHandlers()
	h.RegisterTask("add", noop)

	assert.True(t, h.HasTask("add"))
	assert.False(t, h.HasSerializer("add"))
	_, ok := h.Task("add")
	assert.True(t, ok)
	assert.Equal(t, []string{"add"}, h.TaskPlugins())

	assert.Panics(t, func() { h.RegisterTask("add", noop) })
}

func TestCheckCallables(t *testing.T) {
	t.Run("missing callable is an unknown task", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register("add", &Signature{}))
		require.NoError(t, r.Register("mul", &Signature{}))
		h := NewHandlers()
		h.RegisterTask("add", noop)

		err := r.CheckCallables(context.Background(), h.HasTask)
		require.ErrorIs(t, err, taskerr.ErrUnknownTask)
		assert.ErrorContains(t, err, `"mul"`)
	})

	t.Run("any-typed inputs are flagged", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

		r := New()
		require.NoError(t, r.Register("loose", &Signature{
			Inputs: []*Param{{Name: "data", Type: types.Any}},
		}))
		h := NewHandlers()
		h.RegisterTask("loose", noop)

		require.NoError(t, r.CheckCallables(ctx, h.HasTask))
		assert.Contains(t, buf.String(), "disables static type checking")
		assert.Contains(t, buf.String(), "input=data")
	})
}
