package patch

import (
	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

// InstantiateTemplate clones tmpl's fragment, binds each (name, value) pair
// in args to the template-local slot of that name, and eagerly expands
// every SlotReference in the clone. Template slots share no namespace with
// global slots and are scoped to this single instantiation (spec.md §4.7).
func InstantiateTemplate(tmpl *diffscript.TemplateDefinition, args []diffscript.TemplateArg) []qml.Child {
	local := NewSlotTable()
	for _, a := range args {
		local.Get(a.SlotName).Append(cloneChildren(a.Value))
	}
	return expandSlotReferences(cloneChildren(tmpl.Children), local)
}

// expandSlotReferences walks a cloned child tree, splicing in each slot's
// accumulated contents at its SlotReference site. A reference to a slot
// with no bindings is left unresolved, per spec.md §3's invariant that the
// AST may legitimately hold unbound SlotReferences.
func expandSlotReferences(children []qml.Child, slots *SlotTable) []qml.Child {
	var out []qml.Child
	for _, c := range children {
		switch v := c.(type) {
		case *qml.SlotReference:
			expanded, ok := slots.ExpandChildren(v.Name)
			if !ok {
				out = append(out, v)
				continue
			}
			out = append(out, expandSlotReferences(expanded, slots)...)
		case *qml.Object:
			v.Children = expandSlotReferences(v.Children, slots)
			out = append(out, v)
		case *qml.NamedObjectDecl:
			v.Object.Children = expandSlotReferences(v.Object.Children, slots)
			out = append(out, v)
		default:
			out = append(out, c)
		}
	}
	return out
}

// CloneFile deep-copies a qml.File, used by the engine to apply one AFFECT
// block against a scratch copy so a mid-block failure leaves the caller's
// original file untouched (spec.md §7: the applier is transactional at
// AFFECT granularity).
func CloneFile(f *qml.File) *qml.File {
	objects := make([]*qml.Object, len(f.Objects))
	for i, o := range f.Objects {
		objects[i] = cloneChild(o).(*qml.Object)
	}
	return &qml.File{
		Imports: append([]qml.Import(nil), f.Imports...),
		Objects: objects,
	}
}

// cloneChildren deep-copies a child list so a template fragment or an
// inserted/replicated subtree never aliases the program AST it was parsed
// from.
func cloneChildren(children []qml.Child) []qml.Child {
	out := make([]qml.Child, len(children))
	for i, c := range children {
		out[i] = cloneChild(c)
	}
	return out
}

func cloneChild(c qml.Child) qml.Child {
	switch v := c.(type) {
	case *qml.Object:
		clone := *v
		clone.Children = cloneChildren(v.Children)
		return &clone
	case *qml.NamedObjectDecl:
		objClone := *v.Object
		objClone.Children = cloneChildren(v.Object.Children)
		clone := *v
		clone.Object = &objClone
		return &clone
	case *qml.PropertyDecl:
		clone := *v
		clone.Value = v.Value.Clone()
		if v.ValueObj != nil {
			objClone := *v.ValueObj
			objClone.Children = cloneChildren(v.ValueObj.Children)
			clone.ValueObj = &objClone
		}
		if v.ValueNamed != nil {
			named := *v.ValueNamed
			objClone := *v.ValueNamed.Object
			objClone.Children = cloneChildren(v.ValueNamed.Object.Children)
			named.Object = &objClone
			clone.ValueNamed = &named
		}
		return &clone
	case *qml.Assignment:
		clone := *v
		clone.Value = v.Value.Clone()
		if v.ValueObj != nil {
			objClone := *v.ValueObj
			objClone.Children = cloneChildren(v.ValueObj.Children)
			clone.ValueObj = &objClone
		}
		if v.ValueNamed != nil {
			named := *v.ValueNamed
			objClone := *v.ValueNamed.Object
			objClone.Children = cloneChildren(v.ValueNamed.Object.Children)
			named.Object = &objClone
			clone.ValueNamed = &named
		}
		return &clone
	case *qml.Function:
		clone := *v
		clone.Body = v.Body.Clone()
		return &clone
	case *qml.Signal:
		clone := *v
		return &clone
	case *qml.Enum:
		clone := *v
		clone.Members = append([]qml.EnumMember(nil), v.Members...)
		return &clone
	case *qml.SlotReference:
		clone := *v
		return &clone
	case *qml.HashReference:
		clone := *v
		return &clone
	}
	return c
}
