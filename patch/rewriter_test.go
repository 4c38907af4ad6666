package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

func mustTokens(t *testing.T, src string) qml.TokenStream {
	t.Helper()
	ts, err := qml.ParseTokenStream("t", src)
	require.NoError(t, err)
	return ts
}

func TestRewriterLocateInsert(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "global.visible && myValue"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwLocate{Anchor: diffscript.Before, Needle: mustTokens(t, "myValue")},
		&diffscript.RwInsert{Tokens: mustTokens(t, "!")},
	})
	require.NoError(t, err)
	assert.True(t, rw.Tokens().Equal(mustTokens(t, "global.visible && !myValue")))
}

func TestRewriterRemoveLocated(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a && b"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwLocate{Anchor: diffscript.Before, Needle: mustTokens(t, "b")},
		&diffscript.RwRemove{Located: true},
	})
	require.NoError(t, err)
	assert.True(t, rw.Tokens().Equal(mustTokens(t, "a &&")))
}

func TestRewriterRemoveUntilEnd(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a && b && c"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwLocate{Anchor: diffscript.Before, Needle: mustTokens(t, "b")},
		&diffscript.RwRemove{Until: true, UntilAll: true},
	})
	require.NoError(t, err)
	assert.True(t, rw.Tokens().Equal(mustTokens(t, "a &&")))
}

func TestRewriterReplaceAllOccurrences(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a + a + a"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwReplace{Needle: mustTokens(t, "a"), With: mustTokens(t, "b")},
	})
	require.NoError(t, err)
	assert.True(t, rw.Tokens().Equal(mustTokens(t, "b + b + b")))
}

func TestRewriterLocateNotFoundIsRewriteError(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a && b"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwLocate{Anchor: diffscript.Before, Needle: mustTokens(t, "nope")},
	})
	require.Error(t, err)
	_, ok := err.(*RewriteError)
	assert.True(t, ok)
}

func TestRewriterRemoveLocatedWithoutPriorLocateFails(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a && b"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwRemove{Located: true},
	})
	require.Error(t, err)
	_, ok := err.(*RewriteError)
	assert.True(t, ok)
}

func TestRewriterArgOpsAreSkippedByApply(t *testing.T) {
	t.Parallel()
	rw := NewRewriter(mustTokens(t, "a"))
	err := rw.Apply([]diffscript.RewriteOp{
		&diffscript.RwArgOp{Op: "insert", Name: "x"},
	})
	require.NoError(t, err)
	assert.True(t, rw.Tokens().Equal(mustTokens(t, "a")))
}
