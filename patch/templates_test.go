package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

func TestInstantiateTemplateBindsArgsIntoSlots(t *testing.T) {
	t.Parallel()
	tmpl := &diffscript.TemplateDefinition{
		Name: "card",
		Children: []qml.Child{
			mustParseFile(t, "Rectangle {\n}\n").Objects[0],
			&qml.SlotReference{Name: "body"},
		},
	}
	args := []diffscript.TemplateArg{
		{SlotName: "body", Value: []qml.Child{mustParseFile(t, "Text {\n}\n").Objects[0]}},
	}

	got := InstantiateTemplate(tmpl, args)
	require.Len(t, got, 2)
	assert.Equal(t, "Rectangle", got[0].(*qml.Object).TypeName.Literal)
	assert.Equal(t, "Text", got[1].(*qml.Object).TypeName.Literal)
}

func TestInstantiateTemplateLeavesUnboundSlotReference(t *testing.T) {
	t.Parallel()
	tmpl := &diffscript.TemplateDefinition{
		Name:     "card",
		Children: []qml.Child{&qml.SlotReference{Name: "body"}},
	}

	got := InstantiateTemplate(tmpl, nil)
	require.Len(t, got, 1)
	ref, ok := got[0].(*qml.SlotReference)
	require.True(t, ok)
	assert.Equal(t, "body", ref.Name)
}

func TestInstantiateTemplateExpandsNestedSlotReference(t *testing.T) {
	t.Parallel()
	inner := mustParseFile(t, "Item {\n}\n").Objects[0]
	inner.Children = []qml.Child{&qml.SlotReference{Name: "body"}}
	tmpl := &diffscript.TemplateDefinition{
		Name:     "card",
		Children: []qml.Child{inner},
	}
	args := []diffscript.TemplateArg{
		{SlotName: "body", Value: []qml.Child{mustParseFile(t, "Text {\n}\n").Objects[0]}},
	}

	got := InstantiateTemplate(tmpl, args)
	require.Len(t, got, 1)
	item := got[0].(*qml.Object)
	require.Len(t, item.Children, 1)
	assert.Equal(t, "Text", item.Children[0].(*qml.Object).TypeName.Literal)
}

func TestInstantiateTemplateDoesNotMutateDefinition(t *testing.T) {
	t.Parallel()
	original := mustParseFile(t, "Rectangle {\n}\n").Objects[0]
	tmpl := &diffscript.TemplateDefinition{
		Name:     "card",
		Children: []qml.Child{original},
	}

	got := InstantiateTemplate(tmpl, nil)
	clone := got[0].(*qml.Object)
	clone.TypeName = qml.Ident{Literal: "Mutated"}
	assert.Equal(t, "Rectangle", original.TypeName.Literal)
}

func TestCloneFileDeepCopiesObjectsAndImports(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "import QtQuick 2.0\n\nRectangle {\n    Text {\n    }\n}\n")

	clone := CloneFile(f)
	clone.Imports[0].Name = "Mutated"
	clone.Objects[0].TypeName = qml.Ident{Literal: "Mutated"}
	clone.Objects[0].Children[0].(*qml.Object).TypeName = qml.Ident{Literal: "AlsoMutated"}

	assert.Equal(t, "QtQuick", f.Imports[0].Name)
	assert.Equal(t, "Rectangle", f.Objects[0].TypeName.Literal)
	assert.Equal(t, "Text", f.Objects[0].Children[0].(*qml.Object).TypeName.Literal)
}

func TestCloneFilePreservesStructureAndValues(t *testing.T) {
	t.Parallel()
	f := mustParseFile(t, "Rectangle {\n    width: 1\n    header: Label {\n    }\n}\n")

	clone := CloneFile(f)
	require.Len(t, clone.Objects, 1)
	require.Len(t, clone.Objects[0].Children, 2)

	assign, ok := clone.Objects[0].Children[0].(*qml.Assignment)
	require.True(t, ok)
	assert.Equal(t, "width", assign.Target.Literal)

	named, ok := clone.Objects[0].Children[1].(*qml.NamedObjectDecl)
	require.True(t, ok)
	assert.Equal(t, "header", named.Name.Literal)
	assert.Equal(t, "Label", named.Object.TypeName.Literal)
}
