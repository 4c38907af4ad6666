package patch

import (
	"fmt"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

// PatchError reports that a selector used by a mutating statement matched
// nothing, per spec.md §4.5/§7.
type PatchError struct {
	File      string
	Statement string
	Selector  string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("%s: %s: no match for selector %q", e.File, e.Statement, e.Selector)
}

// AmbiguityError reports that a TRAVERSE's candidate set still held more
// than one entry when a non-filtering statement forced a commit.
type AmbiguityError struct {
	File      string
	Statement string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%s: %s: ambiguous TRAVERSE, more than one candidate remained at commit time", e.File, e.Statement)
}

// TypeMismatchError reports a statement applied to a child shape that
// can't support it, e.g. RENAME on an anonymous Object.
type TypeMismatchError struct {
	File   string
	Detail string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: type mismatch: %s", e.File, e.Detail)
}

// frame is one entry of the traversal stack: spec.md §4.5's
// (currentRoot, cursorPosition) pair, plus the lazy candidate set a
// TRAVERSE/REPLICATE holds before it commits to a single root.
type frame struct {
	root      *qml.Object
	committed bool
	candidates []*qml.Object
	cursor    int
	cursorSet bool
	selDesc   string
}

func (f *frame) commit(fileName, stmtName string) (*qml.Object, error) {
	if f.committed {
		return f.root, nil
	}
	if len(f.candidates) == 0 {
		return nil, &PatchError{File: fileName, Statement: stmtName, Selector: f.selDesc}
	}
	if len(f.candidates) > 1 {
		return nil, &AmbiguityError{File: fileName, Statement: stmtName}
	}
	f.root = f.candidates[0]
	f.committed = true
	return f.root, nil
}

// Applier executes a diffscript.Program's statements against a qml.File.
type Applier struct {
	resolver    diffscript.Resolver
	globalSlots *SlotTable
	templates   map[string]*diffscript.TemplateDefinition
	file        *qml.File
	stack       []*frame
}

// NewApplier constructs an Applier sharing globalSlots and templates across
// every AffectBlock of one patch program run, since INSERT SLOT/TEMPLATE
// in one file's statements can draw on slots filled while processing
// another.
func NewApplier(resolver diffscript.Resolver, globalSlots *SlotTable, templates map[string]*diffscript.TemplateDefinition) *Applier {
	return &Applier{resolver: resolver, globalSlots: globalSlots, templates: templates}
}

// ApplyFile runs stmts against f, named fileName for error reporting.
func (a *Applier) ApplyFile(f *qml.File, fileName string, stmts []diffscript.Statement) error {
	a.file = f
	root := &qml.Object{TypeName: qml.Ident{Literal: "<file>"}}
	for _, o := range f.Objects {
		root.Children = append(root.Children, o)
	}
	a.stack = []*frame{{root: root, committed: true}}

	if err := a.execStatements(stmts, fileName); err != nil {
		return err
	}

	var objs []*qml.Object
	for _, c := range a.stack[0].root.Children {
		obj, ok := c.(*qml.Object)
		if !ok {
			return &TypeMismatchError{File: fileName, Detail: "a top-level child is no longer an Object after patching"}
		}
		objs = append(objs, obj)
	}
	f.Objects = objs
	return nil
}

func (a *Applier) top() *frame { return a.stack[len(a.stack)-1] }

func (a *Applier) commitTop(fileName, stmtName string) (*qml.Object, error) {
	return a.top().commit(fileName, stmtName)
}

func (a *Applier) resolveHash(h uint64) (string, bool) {
	if a.resolver == nil {
		return "", false
	}
	return a.resolver.Lookup(h)
}

func (a *Applier) execStatements(stmts []diffscript.Statement, fileName string) error {
	for _, st := range stmts {
		if err := a.execStatement(st, fileName); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) execStatement(st diffscript.Statement, fileName string) error {
	switch v := st.(type) {
	case *diffscript.AssertStmt:
		return a.execAssert(v, fileName)
	case *diffscript.TraverseBlock:
		return a.execTraverse(v, fileName)
	case *diffscript.LocateStmt:
		return a.execLocate(v, fileName)
	case *diffscript.InsertStmt:
		return a.execInsert(v, fileName)
	case *diffscript.RemoveStmt:
		return a.execRemove(v, fileName)
	case *diffscript.ReplaceStmt:
		return a.execReplace(v, fileName)
	case *diffscript.ReplicateBlock:
		return a.execReplicate(v, fileName)
	case *diffscript.RenameStmt:
		return a.execRename(v, fileName)
	case *diffscript.ImportStmt:
		return a.execImport(v)
	case *diffscript.RewriteBlock:
		root, err := a.commitTop(fileName, "REBUILD/REDEFINE")
		if err != nil {
			return err
		}
		return a.applyRewrite(root, v, fileName)
	}
	return fmt.Errorf("%s: unsupported statement %T", fileName, st)
}

func (a *Applier) execAssert(v *diffscript.AssertStmt, fileName string) error {
	top := a.top()
	if top.committed {
		if len(diffscript.Match(v.Selector, top.root, a.resolver)) == 0 {
			return &PatchError{File: fileName, Statement: "ASSERT", Selector: v.Selector.String()}
		}
		return nil
	}
	var filtered []*qml.Object
	for _, cand := range top.candidates {
		if len(diffscript.Match(v.Selector, cand, a.resolver)) > 0 {
			filtered = append(filtered, cand)
		}
	}
	top.candidates = filtered
	return nil
}

func (a *Applier) execTraverse(v *diffscript.TraverseBlock, fileName string) error {
	root, err := a.commitTop(fileName, "TRAVERSE")
	if err != nil {
		return err
	}
	matches := diffscript.Match(v.Selector, root, a.resolver)
	var candidates []*qml.Object
	for _, m := range matches {
		if obj, ok := diffscript.ObjectOf(m); ok {
			candidates = append(candidates, obj)
		}
	}
	preCursor, preCursorSet := a.top().cursor, a.top().cursorSet

	a.stack = append(a.stack, &frame{candidates: candidates, selDesc: v.Selector.String()})
	err = a.execStatements(v.Body, fileName)
	a.stack = a.stack[:len(a.stack)-1]
	if err != nil {
		return err
	}

	a.top().cursor, a.top().cursorSet = preCursor, preCursorSet
	return nil
}

func (a *Applier) execLocate(v *diffscript.LocateStmt, fileName string) error {
	root, err := a.commitTop(fileName, "LOCATE")
	if err != nil {
		return err
	}
	top := a.top()
	if v.All {
		if v.Anchor == diffscript.Before {
			top.cursor = 0
		} else {
			top.cursor = len(root.Children)
		}
		top.cursorSet = true
		return nil
	}
	idx, err := a.locateIndex(root, v.Selector, v.Anchor, fileName, "LOCATE")
	if err != nil {
		return err
	}
	top.cursor = idx
	top.cursorSet = true
	return nil
}

func (a *Applier) locateIndex(root *qml.Object, sel diffscript.Selector, anchor diffscript.LocateAnchor, fileName, stmtName string) (int, error) {
	matches := diffscript.Match(sel, root, a.resolver)
	if len(matches) == 0 {
		return 0, &PatchError{File: fileName, Statement: stmtName, Selector: sel.String()}
	}
	idx := indexOfChild(root.Children, matches[0])
	if idx < 0 {
		return 0, &PatchError{File: fileName, Statement: stmtName, Selector: sel.String() + " (matched a descendant, not a direct child)"}
	}
	if anchor == diffscript.After {
		return idx + 1, nil
	}
	return idx, nil
}

func (a *Applier) execInsert(v *diffscript.InsertStmt, fileName string) error {
	root, err := a.commitTop(fileName, "INSERT")
	if err != nil {
		return err
	}
	top := a.top()
	if !top.cursorSet {
		return &PatchError{File: fileName, Statement: "INSERT", Selector: "(cursor undefined; LOCATE first)"}
	}
	var toInsert []qml.Child
	switch v.Kind {
	case diffscript.InsertQML:
		toInsert = cloneChildren(v.Children)
	case diffscript.InsertSlot:
		toInsert = a.globalSlots.Get(v.SlotName).Expand()
	case diffscript.InsertTemplate:
		tmpl, ok := a.templates[v.TemplateName]
		if !ok {
			return fmt.Errorf("%s: INSERT TEMPLATE: unknown template %q", fileName, v.TemplateName)
		}
		toInsert = InstantiateTemplate(tmpl, v.TemplateArgs)
	}
	root.Children = spliceChildren(root.Children, top.cursor, toInsert)
	top.cursor += len(toInsert)
	return nil
}

func (a *Applier) execRemove(v *diffscript.RemoveStmt, fileName string) error {
	root, err := a.commitTop(fileName, "REMOVE")
	if err != nil {
		return err
	}
	top := a.top()
	matches := diffscript.Match(v.Selector, root, a.resolver)
	if len(matches) == 0 {
		return &PatchError{File: fileName, Statement: "REMOVE", Selector: v.Selector.String()}
	}
	removeSet := make(map[qml.Child]bool, len(matches))
	for _, m := range matches {
		removeSet[m] = true
	}
	var out []qml.Child
	removedBefore := 0
	for i, c := range root.Children {
		if removeSet[c] {
			if top.cursorSet && i < top.cursor {
				removedBefore++
			}
			continue
		}
		out = append(out, c)
	}
	root.Children = out
	if top.cursorSet {
		top.cursor -= removedBefore
		top.cursor = clamp(top.cursor, 0, len(root.Children))
	}
	return nil
}

func (a *Applier) execReplace(v *diffscript.ReplaceStmt, fileName string) error {
	root, err := a.commitTop(fileName, "REPLACE")
	if err != nil {
		return err
	}
	top := a.top()
	idx, err := a.locateIndex(root, v.Selector, diffscript.Before, fileName, "REPLACE")
	if err != nil {
		return err
	}
	root.Children = removeChildAt(root.Children, idx)
	toInsert := cloneChildren(v.Replacement)
	root.Children = spliceChildren(root.Children, idx, toInsert)
	top.cursor = idx + len(toInsert)
	top.cursorSet = true
	return nil
}

func (a *Applier) execReplicate(v *diffscript.ReplicateBlock, fileName string) error {
	root, err := a.commitTop(fileName, "REPLICATE")
	if err != nil {
		return err
	}
	top := a.top()
	matches := diffscript.Match(v.Selector, root, a.resolver)
	if len(matches) == 0 {
		return &PatchError{File: fileName, Statement: "REPLICATE", Selector: v.Selector.String()}
	}
	original := matches[0]
	clone := cloneChild(original)
	obj, ok := diffscript.ObjectOf(clone)
	if !ok {
		return &TypeMismatchError{File: fileName, Detail: "REPLICATE target has no child list to operate on"}
	}

	a.stack = append(a.stack, &frame{root: obj, committed: true})
	err = a.execStatements(v.Body, fileName)
	a.stack = a.stack[:len(a.stack)-1]
	if err != nil {
		return err
	}

	if !top.cursorSet {
		idx := indexOfChild(root.Children, original)
		top.cursor = idx + 1
		if idx < 0 {
			top.cursor = len(root.Children)
		}
		top.cursorSet = true
	}
	root.Children = spliceChildren(root.Children, top.cursor, []qml.Child{clone})
	top.cursor++
	return nil
}

func (a *Applier) execRename(v *diffscript.RenameStmt, fileName string) error {
	root, err := a.commitTop(fileName, "RENAME")
	if err != nil {
		return err
	}
	top := a.top()
	matches := diffscript.Match(v.Selector, root, a.resolver)
	if len(matches) == 0 {
		return &PatchError{File: fileName, Statement: "RENAME", Selector: v.Selector.String()}
	}
	target := matches[0]
	named, ok := target.(*qml.NamedObjectDecl)
	if !ok {
		return &TypeMismatchError{File: fileName, Detail: "RENAME requires a NamedObjectDeclaration"}
	}
	named.Name = v.NewName
	idx := indexOfChild(root.Children, target)
	top.cursor = idx + 1
	top.cursorSet = true
	return nil
}

func (a *Applier) execImport(v *diffscript.ImportStmt) error {
	for _, imp := range a.file.Imports {
		if imp.Name == v.Name && imp.Version == v.Version && imp.Alias == v.Alias {
			return nil
		}
	}
	a.file.Imports = append(a.file.Imports, qml.Import{Name: v.Name, Version: v.Version, Alias: v.Alias})
	return nil
}

func indexOfChild(children []qml.Child, target qml.Child) int {
	for i, c := range children {
		if c == target {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func spliceChildren(children []qml.Child, at int, ins []qml.Child) []qml.Child {
	out := append([]qml.Child{}, children[:at]...)
	out = append(out, ins...)
	return append(out, children[at:]...)
}

func removeChildAt(children []qml.Child, idx int) []qml.Child {
	out := append([]qml.Child{}, children[:idx]...)
	return append(out, children[idx+1:]...)
}
