package patch

import (
	"fmt"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

// applyRewrite locates rb's target property, function, or assignment
// among root's children, runs the token-stream rewriter over its value
// (REBUILD) or its `name :` prefix plus value (REDEFINE), and writes the
// result back.
func (a *Applier) applyRewrite(root *qml.Object, rb *diffscript.RewriteBlock, fileName string) error {
	idx, err := a.findPropChild(root, rb.PropName, fileName)
	if err != nil {
		return err
	}
	child := root.Children[idx]

	var nameTok qml.Ident
	var valueToks qml.TokenStream
	switch v := child.(type) {
	case *qml.PropertyDecl:
		if v.ValueKind != qml.ValueTokens {
			return &TypeMismatchError{File: fileName, Detail: fmt.Sprintf("property %q is not a flat token-stream value", rb.PropName)}
		}
		nameTok = qml.Ident{Literal: v.Name}
		valueToks = v.Value
	case *qml.Assignment:
		if v.ValueKind != qml.ValueTokens {
			return &TypeMismatchError{File: fileName, Detail: fmt.Sprintf("property %q is not a flat token-stream value", rb.PropName)}
		}
		nameTok = v.Target
		valueToks = v.Value
	case *qml.Function:
		nameTok = qml.Ident{Literal: v.Name}
		valueToks = v.Body
	default:
		return &TypeMismatchError{File: fileName, Detail: fmt.Sprintf("%q is not a property, assignment, or function", rb.PropName)}
	}

	var seed qml.TokenStream
	if rb.Kind == diffscript.Redefine {
		nameText := nameTok.Literal
		if nameTok.Hashed {
			if text, ok := a.resolveHash(nameTok.Hash); ok {
				nameText = text
			} else {
				nameText = fmt.Sprintf("~&%d&~", nameTok.Hash)
			}
		}
		seed = append(seed, qml.StreamToken{Kind: qml.StreamIdent, Text: nameText})
		seed = append(seed, qml.StreamToken{Kind: qml.StreamSymbol, Text: ":"})
	}
	seed = append(seed, valueToks.Clone()...)

	rw := NewRewriter(seed)
	if err := rw.Apply(rb.Ops); err != nil {
		return err
	}
	for _, op := range rb.Ops {
		if argOp, ok := op.(*diffscript.RwArgOp); ok {
			if err := a.applyArgOp(child, argOp, fileName); err != nil {
				return err
			}
		}
	}

	result := rw.Tokens()
	newName := nameTok
	newValue := result
	if rb.Kind == diffscript.Redefine && len(result) >= 2 &&
		result[0].Kind == qml.StreamIdent && result[1].Kind == qml.StreamSymbol && result[1].Text == ":" {
		newName = qml.Ident{Literal: result[0].Text}
		newValue = result[2:]
	}

	switch v := child.(type) {
	case *qml.PropertyDecl:
		v.Name = newName.Literal
		v.Value = newValue
	case *qml.Assignment:
		v.Target = newName
		v.Value = newValue
	case *qml.Function:
		v.Name = newName.Literal
		v.Body = newValue
	}
	return nil
}

func (a *Applier) findPropChild(root *qml.Object, name, fileName string) (int, error) {
	for i, c := range root.Children {
		switch v := c.(type) {
		case *qml.PropertyDecl:
			if v.Name == name {
				return i, nil
			}
		case *qml.Assignment:
			if text, ok := v.Target.Text(a.resolveHash); ok && text == name {
				return i, nil
			}
		case *qml.Function:
			if v.Name == name {
				return i, nil
			}
		case *qml.NamedObjectDecl:
			if text, ok := v.Name.Text(a.resolveHash); ok && text == name {
				return i, nil
			}
		}
	}
	return -1, &PatchError{File: fileName, Statement: "REBUILD/REDEFINE", Selector: name}
}

// applyArgOp edits a Function's argument list in place, the "Function-only"
// INSERT/REMOVE/RENAME ARGUMENT forms that bypass the token-stream
// rewriter entirely (spec.md §4.6).
func (a *Applier) applyArgOp(child qml.Child, op *diffscript.RwArgOp, fileName string) error {
	fn, ok := child.(*qml.Function)
	if !ok {
		return &TypeMismatchError{File: fileName, Detail: "ARGUMENT rewriter operations require a function target"}
	}
	switch op.Op {
	case "insert":
		pos := op.Pos
		if pos < 0 || pos > len(fn.Args) {
			pos = len(fn.Args)
		}
		arg := qml.Arg{Name: op.Name, TypeName: op.TypeName}
		args := append([]qml.Arg{}, fn.Args[:pos]...)
		args = append(args, arg)
		fn.Args = append(args, fn.Args[pos:]...)
	case "remove":
		for i, arg := range fn.Args {
			if arg.Name == op.Name {
				fn.Args = append(fn.Args[:i], fn.Args[i+1:]...)
				break
			}
		}
	case "rename":
		for i := range fn.Args {
			if fn.Args[i].Name == op.Name {
				fn.Args[i].Name = op.NewName
				break
			}
		}
	}
	return nil
}
