package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/qml"
)

func TestSlotExpandConcatenatesAppendedChunksInOrder(t *testing.T) {
	t.Parallel()
	s := NewSlot("rows")
	first := mustParseFile(t, "Row {\n}\n").Objects[0]
	second := mustParseFile(t, "Row {\n}\n").Objects[0]
	second.TypeName = qml.Ident{Literal: "SecondRow"}

	s.Append([]qml.Child{first})
	s.Append([]qml.Child{second})

	got := s.Expand()
	require.Len(t, got, 2)
	assert.Equal(t, "Row", got[0].(*qml.Object).TypeName.Literal)
	assert.Equal(t, "SecondRow", got[1].(*qml.Object).TypeName.Literal)
}

func TestSlotExpandDoesNotConsume(t *testing.T) {
	t.Parallel()
	s := NewSlot("rows")
	s.Append([]qml.Child{mustParseFile(t, "Row {\n}\n").Objects[0]})

	first := s.Expand()
	second := s.Expand()
	assert.Equal(t, len(first), len(second))
	assert.True(t, s.WasRead())
}

func TestSlotTableGetCreatesOnFirstUse(t *testing.T) {
	t.Parallel()
	tab := NewSlotTable()
	assert.False(t, tab.Get("x").WasRead())
	_, ok := tab.ExpandChildren("x")
	assert.True(t, ok)
	assert.True(t, tab.Get("x").WasRead())
}

func TestSlotTableUnusedReportsOnlyUnread(t *testing.T) {
	t.Parallel()
	tab := NewSlotTable()
	tab.Get("used")
	tab.Get("unused")
	tab.ExpandChildren("used")

	unused := tab.Unused()
	require.Len(t, unused, 1)
	assert.Equal(t, "unused", unused[0])
}

func TestSlotTableExpandTokensRendersChildrenAsTokenStream(t *testing.T) {
	t.Parallel()
	tab := NewSlotTable()
	tab.Get("frag").Append([]qml.Child{mustParseFile(t, "Row {\n}\n").Objects[0]})

	ts, ok := tab.ExpandTokens("frag")
	require.True(t, ok)
	assert.NotEmpty(t, ts)
}

func TestSlotTableExpandChildrenUnknownSlot(t *testing.T) {
	t.Parallel()
	tab := NewSlotTable()
	_, ok := tab.ExpandChildren("nope")
	assert.False(t, ok)
}
