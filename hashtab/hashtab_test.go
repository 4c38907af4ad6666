package hashtab

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/hash"
)

func TestInsertIsIdempotent(t *testing.T) {
	t.Parallel()
	tab := New()
	h1 := tab.Insert("Rectangle")
	h2 := tab.Insert("Rectangle")
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, tab.Len())
	assert.Equal(t, hash.Hash("Rectangle"), h1)
}

func TestLookupRoundTrip(t *testing.T) {
	t.Parallel()
	tab := New()
	h := tab.Insert("visible")
	s, ok := tab.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, "visible", s)

	_, ok = tab.Lookup(h + 1)
	assert.False(t, ok)
}

func TestReverseLookup(t *testing.T) {
	t.Parallel()
	tab := New()
	tab.Insert("color")
	h, ok := tab.ReverseLookup("color")
	require.True(t, ok)
	assert.Equal(t, hash.Hash("color"), h)

	_, ok = tab.ReverseLookup("nope")
	assert.False(t, ok)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	tab := New()
	tab.Insert("Rectangle")
	tab.Insert("width")
	tab.Insert("a string with \"quotes\"")

	path := filepath.Join(t.TempDir(), "hashtab.txt")
	require.NoError(t, tab.Save(path, ""))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, tab.Len(), loaded.Len())
	for _, s := range []string{"Rectangle", "width", "a string with \"quotes\""} {
		h, ok := tab.ReverseLookup(s)
		require.True(t, ok)
		got, ok := loaded.Lookup(h)
		require.True(t, ok)
		assert.Equal(t, s, got)
	}
}

func TestMergeSkipsOnVersionMismatch(t *testing.T) {
	t.Parallel()
	tab := New()
	tab.Insert("thing")
	path := filepath.Join(t.TempDir(), "hashtab.txt")
	require.NoError(t, tab.Save(path, "v1"))

	loaded := New()
	require.NoError(t, loaded.Merge(path, "v2"))
	assert.Equal(t, 0, loaded.Len())
}

func TestMergeMissingFile(t *testing.T) {
	t.Parallel()
	tab := New()
	err := tab.Merge(filepath.Join(t.TempDir(), "missing.txt"), "")
	require.Error(t, err)
	_, ok := err.(*MissingError)
	assert.True(t, ok)
}
