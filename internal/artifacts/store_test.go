package artifacts

import (
	"context"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/out", PolicyError)

	loc, err := s.Write(context.Background(), "reports/summary.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "/out/reports/summary.json", loc)

	data, err := afero.ReadFile(fs, loc)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestStore_DuplicateDestination(t *testing.T) {
	t.Run("error policy", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := NewStore(fs, "/out", PolicyError)
		_, err := s.Write(context.Background(), "a.txt", []byte("first"))
		require.NoError(t, err)

		_, err = s.Write(context.Background(), "./a.txt", []byte("second"))
		require.ErrorIs(t, err, taskerr.ErrDuplicateArtifactDestination)

		data, _ := afero.ReadFile(fs, "/out/a.txt")
		assert.Equal(t, "first", string(data))
	})

	t.Run("overwrite policy", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := NewStore(fs, "/out", PolicyOverwrite)
		_, err := s.Write(context.Background(), "a.txt", []byte("first"))
		require.NoError(t, err)
		_, err = s.Write(context.Background(), "a.txt", []byte("second"))
		require.NoError(t, err)

		data, _ := afero.ReadFile(fs, "/out/a.txt")
		assert.Equal(t, "second", string(data))
	})
}

func TestStore_RejectsEscapingPaths(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/out", "")
	for _, name := range []string{"", "/etc/passwd", "../up.txt", "a/../../up.txt"} {
		_, err := s.Write(context.Background(), name, []byte("x"))
		assert.Error(t, err, name)
	}
}
