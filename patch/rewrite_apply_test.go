package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/qml"
)

func TestRebuildRewritesPropertyValue(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n    visible: global.enabled && myValue\n}\n")
	prog := mustParseProgram(t, `AFFECT "t.qml"
TRAVERSE Rectangle
REBUILD visible
LOCATE BEFORE { myValue }
INSERT { ! }
END REBUILD
END TRAVERSE
END AFFECT
`)
	a := NewApplier(nil, NewSlotTable(), nil)
	require.NoError(t, a.ApplyFile(f, "t.qml", prog.Affects[0].Statements))

	assign := f.Objects[0].Children[0].(*qml.Assignment)
	assert.Equal(t, "visible", assign.Target.Literal)

	var bangIdx = -1
	for i, tok := range assign.Value {
		if tok.Kind == qml.StreamSymbol && tok.Text == "!" {
			bangIdx = i
		}
	}
	require.NotEqual(t, -1, bangIdx)
	require.Less(t, bangIdx+1, len(assign.Value))
	nextTok := assign.Value[bangIdx+1]
	assert.Equal(t, qml.StreamIdent, nextTok.Kind)
	assert.Equal(t, "myValue", nextTok.Text)
}

func TestRedefineRenamesPropertyViaPrefix(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n    onClicked: doThing()\n}\n")
	prog := mustParseProgram(t, `AFFECT "t.qml"
TRAVERSE Rectangle
REDEFINE onClicked
LOCATE BEFORE { onClicked }
REMOVE { onClicked }
INSERT { onTapped }
END REDEFINE
END TRAVERSE
END AFFECT
`)
	a := NewApplier(nil, NewSlotTable(), nil)
	require.NoError(t, a.ApplyFile(f, "t.qml", prog.Affects[0].Statements))

	assign := f.Objects[0].Children[0].(*qml.Assignment)
	assert.Equal(t, "onTapped", assign.Target.Literal)
}

func TestRedefineArgOpsEditFunctionSignature(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n    function run(a, b) {\n        return a\n    }\n}\n")
	prog := mustParseProgram(t, `AFFECT "t.qml"
TRAVERSE Rectangle
REDEFINE run
REMOVE ARGUMENT b
INSERT ARGUMENT c: int AT 1
RENAME ARGUMENT a TO first
END REDEFINE
END TRAVERSE
END AFFECT
`)
	a := NewApplier(nil, NewSlotTable(), nil)
	require.NoError(t, a.ApplyFile(f, "t.qml", prog.Affects[0].Statements))

	fn := f.Objects[0].Children[0].(*qml.Function)
	require.Len(t, fn.Args, 2)
	assert.Equal(t, "first", fn.Args[0].Name)
	assert.Equal(t, "c", fn.Args[1].Name)
	assert.Equal(t, "int", fn.Args[1].TypeName)
}

func TestRebuildOnObjectValuedPropertyIsTypeMismatch(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n    border: Border {\n    }\n}\n")
	prog := mustParseProgram(t, `AFFECT "t.qml"
TRAVERSE Rectangle
REBUILD border
LOCATE BEFORE ALL
INSERT { x }
END REBUILD
END TRAVERSE
END AFFECT
`)
	a := NewApplier(nil, NewSlotTable(), nil)
	err := a.ApplyFile(f, "t.qml", prog.Affects[0].Statements)
	require.Error(t, err)
	_, ok := err.(*TypeMismatchError)
	assert.True(t, ok)
}

func TestRebuildUnknownPropertyIsPatchError(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n}\n")
	prog := mustParseProgram(t, `AFFECT "t.qml"
REBUILD visible
LOCATE BEFORE ALL
INSERT { x }
END REBUILD
END AFFECT
`)
	a := NewApplier(nil, NewSlotTable(), nil)
	err := a.ApplyFile(f, "t.qml", prog.Affects[0].Statements)
	require.Error(t, err)
	_, ok := err.(*PatchError)
	assert.True(t, ok)
}
