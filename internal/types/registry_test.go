package types

import (
	"testing"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Expr {
	t.Helper()
	e, err := ParseExpr(src)
	require.NoError(t, err)
	return e
}

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"any", "null", "string", "str", "integer", "int", "number", "float", "boolean", "bool"} {
		d, err := r.Resolve(name)
		require.NoError(t, err, name)
		assert.NotNil(t, d)
	}

	intAlias, _ := r.Resolve("int")
	integer, _ := r.Resolve("integer")
	assert.Same(t, integer, intAlias)
	assert.Empty(t, r.Names(), "builtins are not user types")
}

func TestRegistry_Register(t *testing.T) {
	t.Run("nominal type", func(t *testing.T) {
		r := NewRegistry()
		d, err := r.Register("model", nil)
		require.NoError(t, err)
		assert.Equal(t, KindNominal, d.Kind)
		assert.Equal(t, "model", d.String())
	})

	t.Run("structural alias keeps the expression", func(t *testing.T) {
		r := NewRegistry()
		d, err := r.Register("scores", mustParse(t, "list(number)"))
		require.NoError(t, err)
		assert.Equal(t, KindList, d.Kind)
		assert.Equal(t, "scores", d.String())
		assert.Equal(t, "list(number)", d.Expression())
	})

	t.Run("duplicate user type", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register("model", nil)
		require.NoError(t, err)
		_, err = r.Register("model", nil)
		assert.ErrorIs(t, err, taskerr.ErrDuplicateType)
	})

	t.Run("builtin names cannot be redefined", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register("string", nil)
		assert.ErrorIs(t, err, taskerr.ErrDuplicateType)
	})

	t.Run("undeclared component", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register("rows", mustParse(t, "list(row)"))
		assert.ErrorIs(t, err, taskerr.ErrUnknownComponentType)
		assert.True(t, taskerr.IsValidation(err))
	})
}

func TestRegistry_RegisterAll(t *testing.T) {
	t.Run("definitions may appear in any order", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterAll([]Definition{
			{Name: "table", Expr: mustParse(t, "list(row)")},
			{Name: "row", Expr: mustParse(t, "mapping(string, cell)")},
			{Name: "cell", Expr: mustParse(t, "union(string, number, null)")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"cell", "row", "table"}, r.Names())

		table, err := r.Resolve("table")
		require.NoError(t, err)
		assert.Equal(t, "list(row)", table.Expression())
	})

	t.Run("recursive definition", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterAll([]Definition{
			{Name: "a", Expr: mustParse(t, "list(b)")},
			{Name: "b", Expr: mustParse(t, "list(a)")},
		})
		require.ErrorIs(t, err, taskerr.ErrUnknownComponentType)
		assert.ErrorContains(t, err, "recursively")
	})

	t.Run("undeclared component", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterAll([]Definition{
			{Name: "a", Expr: mustParse(t, "list(missing)")},
		})
		require.ErrorIs(t, err, taskerr.ErrUnknownComponentType)
		assert.ErrorContains(t, err, `"missing"`)
	})

	t.Run("duplicate within the batch", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterAll([]Definition{{Name: "a"}, {Name: "a"}})
		assert.ErrorIs(t, err, taskerr.ErrDuplicateType)
	})
}

func TestRegistry_ResolveExpr(t *testing.T) {
	r := NewRegistry()

	d, err := r.ResolveExpr(nil)
	require.NoError(t, err)
	assert.Same(t, Any, d)

	_, err = r.ResolveExpr(Ref("nope"))
	assert.ErrorIs(t, err, taskerr.ErrUnknownType)

	_, err = r.ResolveExpr(mustParse(t, "list(nope)"))
	assert.ErrorIs(t, err, taskerr.ErrUnknownComponentType)

	d, err = r.ResolveExpr(mustParse(t, "optional(integer)"))
	require.NoError(t, err)
	assert.Equal(t, "union(integer, null)", d.Expression())
	assert.True(t, d.Nullable())
}

func TestParseExpr(t *testing.T) {
	testCases := []struct {
		src     string
		want    string
		wantErr string
	}{
		{src: "integer", want: "integer"},
		{src: "list(number)", want: "list(number)"},
		{src: "mapping(string, list(int))", want: "mapping(string, list(int))"},
		{src: "map(string, any)", want: "map(string, any)"},
		{src: "union(string, null)", want: "union(string, null)"},
		{src: "tuple(string, integer, boolean)", want: "tuple(string, integer, boolean)"},
		{src: `"list(string)"`, want: "list(string)"},
		{src: "set(string)", wantErr: "unknown type constructor"},
		{src: "list(string, number)", wantErr: "exactly one"},
		{src: "mapping(string)", wantErr: "key and a value"},
		{src: "union()", wantErr: "at least one"},
		{src: "a.b", wantErr: "single identifier"},
		{src: "", wantErr: "empty"},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := ParseExpr(tc.src)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.String())
		})
	}
}

func TestExprRefs(t *testing.T) {
	e := mustParse(t, "mapping(string, union(row, list(cell)))")
	assert.Equal(t, []string{"string", "row", "cell"}, e.Refs())
}
