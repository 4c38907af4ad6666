package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildChangeFilesLoadsSingleFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.diff", `AFFECT "main.qml"
REMOVE Rectangle
END AFFECT
`)

	c := New()
	n, err := c.BuildChangeFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, c.IsModified("main.qml"))
	assert.False(t, c.IsModified("other.qml"))
}

func TestBuildChangeFilesWalksDirectoryAndSkipsBadFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "good.diff", `AFFECT "main.qml"
REMOVE Rectangle
END AFFECT
`)
	writeFile(t, dir, "bad.diff", "AFFECT this is not valid diffscript at all (((\n")

	c := New()
	n, err := c.BuildChangeFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, c.IsModified("main.qml"))
}

func TestProcessFileWithNoAffectsReturnsUnmodified(t *testing.T) {
	t.Parallel()
	c := New()
	src := []byte("Rectangle {\n}\n")
	out, modified, err := c.ProcessFile("main.qml", src)
	require.NoError(t, err)
	assert.False(t, modified)
	assert.Equal(t, src, out)
}

func TestProcessFileAppliesLoadedAffectBlock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.diff", `AFFECT "main.qml"
LOCATE BEFORE ALL
INSERT {
    Text {
    }
}
END AFFECT
`)
	c := New()
	_, err := c.BuildChangeFiles(dir)
	require.NoError(t, err)

	out, modified, err := c.ProcessFile("main.qml", []byte("Rectangle {\n}\n"))
	require.NoError(t, err)
	assert.True(t, modified)
	assert.Contains(t, string(out), "Text")
	assert.Contains(t, string(out), "Rectangle")
}

func TestProcessFileFailingBlockIsSkippedNotFatal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.diff", `AFFECT "main.qml"
REMOVE Label
END AFFECT
`)
	c := New()
	_, err := c.BuildChangeFiles(dir)
	require.NoError(t, err)

	src := []byte("Rectangle {\n}\n")
	out, modified, err := c.ProcessFile("main.qml", src)
	require.NoError(t, err)
	assert.False(t, modified)
	assert.Equal(t, src, out)
}

func TestProcessFileResolvesHashedAffectTarget(t *testing.T) {
	t.Parallel()
	c := New()
	c.Hashtab().Insert("main.qml")
	h, _ := c.Hashtab().ReverseLookup("main.qml")

	dir := t.TempDir()
	writeFile(t, dir, "a.diff", `AFFECT ~&`+strconv.FormatUint(h, 10)+`&~
LOCATE BEFORE ALL
INSERT {
    Text {
    }
}
END AFFECT
`)
	_, err := c.BuildChangeFiles(dir)
	require.NoError(t, err)
	assert.True(t, c.IsModified("main.qml"))
}
