package diffscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerKeywordsAndIdents(t *testing.T) {
	t.Parallel()
	lex := NewLexer("AFFECT \"main.qml\" END AFFECT")
	tok := lex.Next()
	assert.Equal(t, TokKeyword, tok.Kind)
	assert.Equal(t, "AFFECT", tok.Val)

	tok = lex.Next()
	assert.Equal(t, TokString, tok.Kind)

	tok = lex.Next()
	assert.Equal(t, TokKeyword, tok.Kind)
	assert.Equal(t, "END", tok.Val)
}

func TestLexerHashAndSlotRef(t *testing.T) {
	t.Parallel()
	lex := NewLexer("~&55&~ ~{mySlot}~")
	tok := lex.Next()
	require.Equal(t, TokHashRef, tok.Kind)
	assert.Equal(t, uint64(55), tok.Hash)

	tok = lex.Next()
	require.Equal(t, TokSlotRef, tok.Kind)
	assert.Equal(t, "mySlot", tok.Val)
}

func TestLexerCaptureBraceBody(t *testing.T) {
	t.Parallel()
	lex := NewLexer("{ width: 1 } REMOVE")
	lex.Expect(TokSymbol, "{")
	body := lex.CaptureBraceBody()
	assert.Equal(t, " width: 1 ", body)

	tok := lex.Next()
	assert.Equal(t, TokKeyword, tok.Kind)
	assert.Equal(t, "REMOVE", tok.Val)
}

func TestLexerCaptureBraceBodyNested(t *testing.T) {
	t.Parallel()
	lex := NewLexer("{ Rectangle { width: 1 } }")
	lex.Expect(TokSymbol, "{")
	body := lex.CaptureBraceBody()
	assert.Equal(t, " Rectangle { width: 1 } ", body)
}

func TestLexerCaptureUntilDelim(t *testing.T) {
	t.Parallel()
	lex := NewLexer("STREAM | } | END")
	lex.Expect(TokKeyword, "STREAM")
	delim := lex.Expect(TokSymbol, "|")
	body := lex.CaptureUntilDelim(delim.Val)
	assert.Equal(t, " } ", body)

	tok := lex.Next()
	assert.Equal(t, TokKeyword, tok.Kind)
	assert.Equal(t, "END", tok.Val)
}

func TestLexerCaptureUntilDelimSkipsDelimInsideQuotedString(t *testing.T) {
	t.Parallel()
	lex := NewLexer(`STREAM | "a|b" |`)
	lex.Expect(TokKeyword, "STREAM")
	delim := lex.Expect(TokSymbol, "|")
	body := lex.CaptureUntilDelim(delim.Val)
	assert.Equal(t, ` "a|b" `, body)
}
