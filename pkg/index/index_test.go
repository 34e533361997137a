package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSprintIndexPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sprints.json")

	idx, err := Open(path, "acunote")
	require.NoError(t, err)
	_, ok := idx.Get("Q3")
	assert.False(t, ok)

	// Nothing to write yet.
	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	ref := sprint.Ref{Name: "Q3", Href: "/projects/1/sprints/77"}
	idx.Set("Q3", ref)
	require.NoError(t, idx.Save())

	reloaded, err := Open(path, "acunote")
	require.NoError(t, err)
	got, ok := reloaded.Get("Q3")
	require.True(t, ok)
	assert.Equal(t, ref, got)

	other, err := Open(path, "google")
	require.NoError(t, err)
	_, ok = other.Get("Q3")
	assert.False(t, ok, "targets must not share refs")

	reloaded.Remove("Q3")
	require.NoError(t, reloaded.Save())
	again, err := Open(path, "acunote")
	require.NoError(t, err)
	_, ok = again.Get("Q3")
	assert.False(t, ok)
}

func TestSprintIndexCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprints.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path, "acunote")
	assert.Error(t, err)
}

func TestSprintIndexNullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprints.json")
	require.NoError(t, os.WriteFile(path, []byte("null\n"), 0600))

	idx, err := Open(path, "acunote")
	require.NoError(t, err)
	require.NotPanics(t, func() {
		idx.Set("Q3", sprint.Ref{Name: "Q3", Href: "/projects/1/sprints/5"})
	})
	got, ok := idx.Get("Q3")
	require.True(t, ok)
	assert.Equal(t, "5", got.ID())
}
