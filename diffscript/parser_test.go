package diffscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/qml"
)

func noLoader(string) (string, error) { return "", nil }

func TestParseVersionSlotTemplate(t *testing.T) {
	t.Parallel()
	src := `VERSION "1.0"
SLOT header
TEMPLATE row {
    Rectangle {
        width: 10
    }
}
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	assert.Equal(t, "1.0", prog.Version)
	require.Contains(t, prog.Slots, "header")
	require.Contains(t, prog.Templates, "row")
	assert.Len(t, prog.Templates["row"].Children, 1)
}

func TestParseAffectWithLocateInsertRemove(t *testing.T) {
	t.Parallel()
	src := `AFFECT "main.qml"
LOCATE AFTER Rectangle:header
INSERT {
    Text {
        text: "hi"
    }
}
REMOVE Item.visible=false
END AFFECT
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	require.Len(t, prog.Affects, 1)
	ab := prog.Affects[0]
	assert.Equal(t, "main.qml", ab.File.Literal)
	require.Len(t, ab.Statements, 3)

	loc, ok := ab.Statements[0].(*LocateStmt)
	require.True(t, ok)
	assert.Equal(t, After, loc.Anchor)
	assert.False(t, loc.All)
	require.Len(t, loc.Selector, 1)
	assert.Equal(t, "Rectangle", loc.Selector[0].TypeName)
	require.Len(t, loc.Selector[0].Predicates, 1)
	assert.Equal(t, PredName, loc.Selector[0].Predicates[0].Kind)
	assert.Equal(t, "header", loc.Selector[0].Predicates[0].Name)

	ins, ok := ab.Statements[1].(*InsertStmt)
	require.True(t, ok)
	assert.Equal(t, InsertQML, ins.Kind)
	require.Len(t, ins.Children, 1)

	rem, ok := ab.Statements[2].(*RemoveStmt)
	require.True(t, ok)
	require.Len(t, rem.Selector, 1)
	assert.Equal(t, PredPropEq, rem.Selector[0].Predicates[0].Kind)
	assert.Equal(t, "visible", rem.Selector[0].Predicates[0].Name)
	assert.Equal(t, "false", rem.Selector[0].Predicates[0].Value)
}

func TestParseHashedFileRef(t *testing.T) {
	t.Parallel()
	src := "AFFECT ~&77&~\nEND AFFECT\n"
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	require.Len(t, prog.Affects, 1)
	assert.True(t, prog.Affects[0].File.Hashed)
	assert.Equal(t, uint64(77), prog.Affects[0].File.Hash)
}

func TestParseTraverseAndAssert(t *testing.T) {
	t.Parallel()
	src := `AFFECT "main.qml"
TRAVERSE Rectangle
ASSERT Rectangle:header
LOCATE BEFORE ALL
END TRAVERSE
END AFFECT
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	tb, ok := prog.Affects[0].Statements[0].(*TraverseBlock)
	require.True(t, ok)
	assert.Equal(t, "Rectangle", tb.Selector[0].TypeName)
	require.Len(t, tb.Body, 2)

	assertStmt, ok := tb.Body[0].(*AssertStmt)
	require.True(t, ok)
	assert.Equal(t, "header", assertStmt.Selector[0].Predicates[0].Name)

	loc, ok := tb.Body[1].(*LocateStmt)
	require.True(t, ok)
	assert.True(t, loc.All)
}

func TestParseMultiSegmentSelector(t *testing.T) {
	t.Parallel()
	src := "AFFECT \"f.qml\"\nREMOVE Rectangle:outer > Item!visible\nEND AFFECT\n"
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	rem := prog.Affects[0].Statements[0].(*RemoveStmt)
	require.Len(t, rem.Selector, 2)
	assert.Equal(t, "Rectangle", rem.Selector[0].TypeName)
	assert.Equal(t, "Item", rem.Selector[1].TypeName)
	assert.Equal(t, PredHasProp, rem.Selector[1].Predicates[0].Kind)
}

func TestParseIDSugarDesugarsToPropEqOnID(t *testing.T) {
	t.Parallel()
	src := "AFFECT \"f.qml\"\nREMOVE Rectangle#myId\nEND AFFECT\n"
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	rem := prog.Affects[0].Statements[0].(*RemoveStmt)
	pred := rem.Selector[0].Predicates[0]
	assert.Equal(t, PredIDSugar, pred.Kind)
	assert.Equal(t, "id", pred.Name)
	assert.Equal(t, "myId", pred.Value)
}

func TestParseRenameWithHashedTarget(t *testing.T) {
	t.Parallel()
	src := "AFFECT \"f.qml\"\nRENAME Rectangle:header TO ~&3&~\nEND AFFECT\n"
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	ren := prog.Affects[0].Statements[0].(*RenameStmt)
	assert.True(t, ren.NewName.Hashed)
	assert.Equal(t, uint64(3), ren.NewName.Hash)
}

func TestParseReplicateAndReplace(t *testing.T) {
	t.Parallel()
	src := `AFFECT "f.qml"
REPLICATE Item:template
RENAME Item:template TO clone
END REPLICATE
REPLACE Rectangle:old WITH {
    Rectangle {
        width: 1
    }
}
END AFFECT
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	require.Len(t, prog.Affects[0].Statements, 2)

	rb, ok := prog.Affects[0].Statements[0].(*ReplicateBlock)
	require.True(t, ok)
	require.Len(t, rb.Body, 1)

	rep, ok := prog.Affects[0].Statements[1].(*ReplaceStmt)
	require.True(t, ok)
	require.Len(t, rep.Replacement, 1)
}

func TestParseImportStmt(t *testing.T) {
	t.Parallel()
	src := "AFFECT \"f.qml\"\nIMPORT QtQuick 2.0 AS Quick\nEND AFFECT\n"
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	imp, ok := prog.Affects[0].Statements[0].(*ImportStmt)
	require.True(t, ok)
	assert.Equal(t, "QtQuick", imp.Name)
	assert.Equal(t, "2.0", imp.Version)
	assert.Equal(t, "Quick", imp.Alias)
}

func TestParseRebuildAndRedefine(t *testing.T) {
	t.Parallel()
	src := `AFFECT "f.qml"
REBUILD visible
LOCATE BEFORE { && }
INSERT { myCondition }
REMOVE UNTIL END
END REBUILD
REDEFINE onClicked
REMOVE ARGUMENT x
INSERT ARGUMENT y: int AT 0
RENAME ARGUMENT y TO z
END REDEFINE
END AFFECT
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)
	require.Len(t, prog.Affects[0].Statements, 2)

	rw, ok := prog.Affects[0].Statements[0].(*RewriteBlock)
	require.True(t, ok)
	assert.Equal(t, Rebuild, rw.Kind)
	assert.Equal(t, "visible", rw.PropName)
	require.Len(t, rw.Ops, 3)

	loc, ok := rw.Ops[0].(*RwLocate)
	require.True(t, ok)
	assert.Equal(t, Before, loc.Anchor)

	rem, ok := rw.Ops[2].(*RwRemove)
	require.True(t, ok)
	assert.True(t, rem.Until)
	assert.True(t, rem.UntilAll)

	rd, ok := prog.Affects[0].Statements[1].(*RewriteBlock)
	require.True(t, ok)
	assert.Equal(t, Redefine, rd.Kind)
	require.Len(t, rd.Ops, 3)

	removeArg, ok := rd.Ops[0].(*RwArgOp)
	require.True(t, ok)
	assert.Equal(t, "remove", removeArg.Op)
	assert.Equal(t, "x", removeArg.Name)

	insertArg, ok := rd.Ops[1].(*RwArgOp)
	require.True(t, ok)
	assert.Equal(t, "insert", insertArg.Op)
	assert.Equal(t, "int", insertArg.TypeName)
	assert.Equal(t, 0, insertArg.Pos)

	renameArg, ok := rd.Ops[2].(*RwArgOp)
	require.True(t, ok)
	assert.Equal(t, "rename", renameArg.Op)
	assert.Equal(t, "y", renameArg.Name)
	assert.Equal(t, "z", renameArg.NewName)
}

func TestParseTokenLiteralStreamFormCapturesUnbalancedContent(t *testing.T) {
	t.Parallel()
	// A bare `}` can't be captured via the `{ ... }` brace-counted form
	// (the depth counter would treat it as the closing delimiter before
	// any content was read), so this needle must use STREAM <delim>.
	src := `AFFECT "f.qml"
REBUILD visible
LOCATE BEFORE STREAM | } |
END REBUILD
END AFFECT
`
	prog, err := Parse("t.diff", src, noLoader)
	require.NoError(t, err)

	rw, ok := prog.Affects[0].Statements[0].(*RewriteBlock)
	require.True(t, ok)
	require.Len(t, rw.Ops, 1)

	loc, ok := rw.Ops[0].(*RwLocate)
	require.True(t, ok)
	require.Len(t, loc.Needle, 1)
	assert.Equal(t, qml.StreamSymbol, loc.Needle[0].Kind)
	assert.Equal(t, "}", loc.Needle[0].Text)
}

func TestParseLoadDirectiveInlinesViaLoader(t *testing.T) {
	t.Parallel()
	loader := func(path string) (string, error) {
		assert.Equal(t, "sub.diff", path)
		return "SLOT fromSub\n", nil
	}
	prog, err := Parse("t.diff", "LOAD \"sub.diff\"\n", loader)
	require.NoError(t, err)
	assert.Contains(t, prog.Slots, "fromSub")
}

func TestParseMissingEndAffectIsParseError(t *testing.T) {
	t.Parallel()
	_, err := Parse("t.diff", "AFFECT \"f.qml\"\n", noLoader)
	require.Error(t, err)
	_, ok := err.(*ParseError)
	assert.True(t, ok)
}
