// Package diffscript implements the patch description language: the parser
// for AFFECT/TRAVERSE blocks, the selector grammar, and the AST the patch
// applier walks.
package diffscript

import "github.com/qmldiff/qmldiff/qml"

// Program is a fully parsed, fully inlined (LOAD directives resolved)
// top-level patch document.
type Program struct {
	Version   string
	Slots     map[string]*SlotDefinition
	Templates map[string]*TemplateDefinition
	Affects   []*AffectBlock
}

// SlotDefinition declares a global slot name; the accumulator itself lives
// in the patch/engine runtime, not here.
type SlotDefinition struct {
	Name string
}

// TemplateDefinition is a pre-parsed child fragment containing
// SlotReferences local to the template's own instantiations.
type TemplateDefinition struct {
	Name     string
	Children []qml.Child
}

// AffectBlock targets one file (by literal name or hash) with an ordered
// list of statements.
type AffectBlock struct {
	File       FileRef
	Statements []Statement
}

// FileRef is a file-path selector: either a literal string or a hash to be
// resolved through the hashtab.
type FileRef struct {
	Literal string
	Hash    uint64
	Hashed  bool
}

// Statement is a tagged variant over everything that can appear directly
// inside an AffectBlock or nested TraverseBlock.
type Statement interface{ statement() }

// TraverseBlock takes every direct child matching Selector as a candidate
// and executes Body against the single candidate left once ASSERT
// statements have narrowed the set (more than one left is an
// AmbiguityError); traverses nest.
type TraverseBlock struct {
	Selector Selector
	Body     []Statement
}

func (*TraverseBlock) statement() {}

// AssertStmt narrows the enclosing TraverseBlock's candidate set.
type AssertStmt struct {
	Selector Selector
}

func (*AssertStmt) statement() {}

// LocateAnchor discriminates BEFORE/AFTER.
type LocateAnchor int

const (
	Before LocateAnchor = iota
	After
)

// LocateStmt moves the cursor. All is true for LOCATE BEFORE/AFTER ALL, in
// which case Selector is unused.
type LocateStmt struct {
	Anchor   LocateAnchor
	All      bool
	Selector Selector
}

func (*LocateStmt) statement() {}

// InsertKind discriminates the three INSERT forms.
type InsertKind int

const (
	InsertQML InsertKind = iota
	InsertSlot
	InsertTemplate
)

// InsertStmt splices new children at the cursor.
type InsertStmt struct {
	Kind         InsertKind
	Children     []qml.Child // InsertQML
	SlotName     string      // InsertSlot / InsertTemplate binding target lookup
	TemplateName string      // InsertTemplate
	TemplateArgs []TemplateArg
}

func (*InsertStmt) statement() {}

// TemplateArg is one `name: { qml }` binding in an INSERT TEMPLATE argument
// list.
type TemplateArg struct {
	SlotName string
	Value    []qml.Child
}

// RemoveStmt removes every direct child matching Selector.
type RemoveStmt struct {
	Selector Selector
}

func (*RemoveStmt) statement() {}

// ReplaceStmt is sugar for LOCATE BEFORE sel; REMOVE sel; INSERT
// replacement, kept as a single statement so the applier can execute it
// atomically.
type ReplaceStmt struct {
	Selector    Selector
	Replacement []qml.Child
}

func (*ReplaceStmt) statement() {}

// ReplicateBlock clones the first child matching Selector, runs Body against
// the copy, then splices the (possibly mutated) copy back at the parent's
// cursor, or right after the original when the parent has no cursor.
type ReplicateBlock struct {
	Selector Selector
	Body     []Statement
}

func (*ReplicateBlock) statement() {}

// RenameStmt renames a NamedObjectDeclaration; any other child kind is a
// TypeMismatchError.
type RenameStmt struct {
	Selector Selector
	NewName  qml.Ident
}

func (*RenameStmt) statement() {}

// ImportStmt appends to the target file's import list, de-duplicated by
// (Name, Version, Alias).
type ImportStmt struct {
	Name    string
	Version string
	Alias   string
}

func (*ImportStmt) statement() {}

// RewriteKind discriminates REBUILD from REDEFINE.
type RewriteKind int

const (
	Rebuild RewriteKind = iota
	Redefine
)

// RewriteBlock enters the token-stream rewriter scoped to the named
// property's value (REBUILD) or full declaration (REDEFINE).
type RewriteBlock struct {
	Kind     RewriteKind
	PropName string
	Ops      []RewriteOp
}

func (*RewriteBlock) statement() {}

// RewriteOp is a tagged variant over token-stream rewriter operations.
type RewriteOp interface{ rewriteOp() }

type RwLocate struct {
	Anchor LocateAnchor
	All    bool
	Needle qml.TokenStream
}

func (*RwLocate) rewriteOp() {}

type RwInsert struct {
	Tokens qml.TokenStream
}

func (*RwInsert) rewriteOp() {}

// RwRemove covers REMOVE <stream>, REMOVE LOCATED, REMOVE UNTIL END, and
// REMOVE UNTIL <stream>.
type RwRemove struct {
	Located   bool
	Needle    qml.TokenStream
	Until     bool
	UntilAll  bool
	UntilNeed qml.TokenStream
}

func (*RwRemove) rewriteOp() {}

// RwReplace covers REPLACE [LOCATED|<stream>] [UNTIL <stream>] WITH
// <stream>.
type RwReplace struct {
	Located   bool
	Needle    qml.TokenStream
	Until     bool
	UntilNeed qml.TokenStream
	With      qml.TokenStream
}

func (*RwReplace) rewriteOp() {}

// RwArgOp covers the function-argument-list editing operations
// INSERT/REMOVE/RENAME ARGUMENT name AT pos.
type RwArgOp struct {
	Op       string // "insert", "remove", "rename"
	Name     string
	NewName  string
	Pos      int
	TypeName string
}

func (*RwArgOp) rewriteOp() {}

// Selector is a `>`-separated path of NodeSelectors.
type Selector []NodeSelector

// NodeSelector filters children by an optional type-name and a conjunction
// of predicates, evaluated in written order.
type NodeSelector struct {
	TypeName   string // empty means unfiltered
	Predicates []Predicate
}

// PredicateKind discriminates the five predicate forms.
type PredicateKind int

const (
	PredName     PredicateKind = iota // :name
	PredHasProp                       // !prop
	PredPropEq                        // .prop=value
	PredPropHas                       // .prop~value
	PredIDSugar                       // #id, desugars to PredPropEq on "id"
)

// Predicate is one bracket-free filter clause chained onto a NodeSelector.
type Predicate struct {
	Kind  PredicateKind
	Name  string // target name (:name) or property name (!prop, .prop)
	Value string // verbatim comparison text for PredPropEq/PredPropHas/PredIDSugar
}
