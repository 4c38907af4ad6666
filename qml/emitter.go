package qml

import (
	"fmt"
	"strings"
)

// HashResolver resolves a 64-bit hash back to the string it was hashed
// from. *hashtab.Table satisfies this by structure, without qml importing
// hashtab — only engine wires the two together.
type HashResolver interface {
	Lookup(h uint64) (string, bool)
}

// SlotResolver expands a named Slot at emission time. Children is the
// concatenation of everything appended to the slot, in definition order
// (spec.md §4.7); Tokens renders the same contents as a token stream, used
// when a slot reference appears inside a property value or JS body rather
// than directly in an object's child list.
type SlotResolver interface {
	ExpandChildren(name string) ([]Child, bool)
	ExpandTokens(name string) (TokenStream, bool)
}

// HashLookupError records a HashReference that could not be resolved during
// emission — collected rather than aborting the whole emit, per
// original_source's error_collector.rs.
type HashLookupError struct {
	Hash uint64
	File string
}

func (e HashLookupError) Error() string {
	return fmt.Sprintf("%s: cannot resolve hash %d", e.File, e.Hash)
}

// EmitResult is the output of Emit: the rendered source, plus any
// HashReferences that had no hashtab entry (rendered back out in their
// ~&N&~ form so the result still round-trips).
type EmitResult struct {
	Output           string
	UnresolvedHashes []HashLookupError
}

// Emitter serializes a *File back to QML source with deterministic
// indentation.
type Emitter struct {
	Hashes HashResolver
	Slots  SlotResolver
	File   string // file name, only used to annotate HashLookupError
	indent string

	unresolved []HashLookupError
}

// NewEmitter constructs an Emitter. Either resolver may be nil, in which
// case hash references are left in ~&N&~ form and slot references are
// rendered literally.
func NewEmitter(hashes HashResolver, slots SlotResolver) *Emitter {
	return &Emitter{Hashes: hashes, Slots: slots, indent: "    "}
}

// Emit renders f as QML source text.
func (e *Emitter) Emit(f *File) EmitResult {
	var b strings.Builder
	for _, imp := range f.Imports {
		b.WriteString("import ")
		b.WriteString(imp.Name)
		if imp.Version != "" {
			b.WriteString(" " + imp.Version)
		}
		if imp.Alias != "" {
			b.WriteString(" as " + imp.Alias)
		}
		b.WriteString("\n")
	}
	if len(f.Imports) > 0 {
		b.WriteString("\n")
	}
	for i, obj := range f.Objects {
		if i > 0 {
			b.WriteString("\n")
		}
		e.emitObject(&b, obj, 0)
	}
	return EmitResult{Output: b.String(), UnresolvedHashes: e.drainUnresolved()}
}

// EmitChildren renders a bare child list at zero indentation, the shape a
// slot's or template's accumulated contents take before they're spliced
// into a parent object.
func (e *Emitter) EmitChildren(children []Child) string {
	var b strings.Builder
	for _, c := range children {
		e.emitChild(&b, c, 0)
	}
	return b.String()
}

func (e *Emitter) drainUnresolved() []HashLookupError {
	out := e.unresolved
	e.unresolved = nil
	return out
}

func (e *Emitter) resolveIdent(id Ident) string {
	if !id.Hashed {
		return id.Literal
	}
	if e.Hashes != nil {
		if s, ok := e.Hashes.Lookup(id.Hash); ok {
			return s
		}
	}
	e.unresolved = append(e.unresolved, HashLookupError{Hash: id.Hash, File: e.File})
	return fmt.Sprintf("~&%d&~", id.Hash)
}

func (e *Emitter) pad(n int) string {
	return strings.Repeat(e.indent, n)
}

func (e *Emitter) emitObject(b *strings.Builder, obj *Object, depth int) {
	b.WriteString(e.pad(depth))
	b.WriteString(e.resolveIdent(obj.TypeName))
	b.WriteString(" {\n")
	for _, c := range obj.Children {
		e.emitChild(b, c, depth+1)
	}
	b.WriteString(e.pad(depth))
	b.WriteString("}\n")
}

func (e *Emitter) emitChild(b *strings.Builder, c Child, depth int) {
	switch v := c.(type) {
	case *Object:
		e.emitObject(b, v, depth)
	case *NamedObjectDecl:
		b.WriteString(e.pad(depth))
		b.WriteString(e.resolveIdent(v.Name))
		b.WriteString(": ")
		b.WriteString(e.resolveIdent(v.Object.TypeName))
		b.WriteString(" {\n")
		for _, cc := range v.Object.Children {
			e.emitChild(b, cc, depth+1)
		}
		b.WriteString(e.pad(depth))
		b.WriteString("}\n")
	case *PropertyDecl:
		b.WriteString(e.pad(depth))
		if v.Default {
			b.WriteString("default ")
		}
		if v.Readonly {
			b.WriteString("readonly ")
		}
		b.WriteString("property ")
		b.WriteString(v.TypeName)
		b.WriteString(" ")
		b.WriteString(v.Name)
		if v.HasValue {
			b.WriteString(": ")
			e.emitValue(b, v.ValueKind, v.ValueObj, v.ValueNamed, v.Value, depth)
		}
		b.WriteString("\n")
	case *Assignment:
		b.WriteString(e.pad(depth))
		b.WriteString(e.resolveIdent(v.Target))
		b.WriteString(": ")
		e.emitValue(b, v.ValueKind, v.ValueObj, v.ValueNamed, v.Value, depth)
		b.WriteString("\n")
	case *Function:
		b.WriteString(e.pad(depth))
		b.WriteString("function ")
		b.WriteString(v.Name)
		b.WriteString("(")
		e.emitArgs(b, v.Args)
		b.WriteString(") {\n")
		b.WriteString(e.RenderTokens(v.Body))
		b.WriteString("\n")
		b.WriteString(e.pad(depth))
		b.WriteString("}\n")
	case *Signal:
		b.WriteString(e.pad(depth))
		b.WriteString("signal ")
		b.WriteString(v.Name)
		if len(v.Args) > 0 {
			b.WriteString("(")
			e.emitArgs(b, v.Args)
			b.WriteString(")")
		}
		b.WriteString("\n")
	case *Enum:
		b.WriteString(e.pad(depth))
		b.WriteString("enum ")
		b.WriteString(v.Name)
		b.WriteString(" { ")
		for i, m := range v.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name)
			b.WriteString(fmt.Sprintf(": %d", m.Value))
		}
		b.WriteString(" }\n")
	case *SlotReference:
		b.WriteString(e.emitChildSlot(v.Name, depth))
	case *HashReference:
		b.WriteString(e.pad(depth))
		b.WriteString(e.resolveHashChild(v.Hash))
		b.WriteString("\n")
	default:
		panic(fmt.Sprintf("qml: unknown child type %T", c))
	}
}

func (e *Emitter) resolveHashChild(h uint64) string {
	if e.Hashes != nil {
		if s, ok := e.Hashes.Lookup(h); ok {
			return s
		}
	}
	e.unresolved = append(e.unresolved, HashLookupError{Hash: h, File: e.File})
	return fmt.Sprintf("~&%d&~", h)
}

func (e *Emitter) emitChildSlot(name string, depth int) string {
	if e.Slots == nil {
		return e.pad(depth) + fmt.Sprintf("~{%s}~\n", name)
	}
	children, ok := e.Slots.ExpandChildren(name)
	if !ok {
		return e.pad(depth) + fmt.Sprintf("~{%s}~\n", name)
	}
	var b strings.Builder
	for _, c := range children {
		e.emitChild(&b, c, depth)
	}
	return b.String()
}

func (e *Emitter) emitArgs(b *strings.Builder, args []Arg) {
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name)
		if a.TypeName != "" {
			b.WriteString(": " + a.TypeName)
		}
	}
}

func (e *Emitter) emitValue(b *strings.Builder, kind ValueKind, obj *Object, named *NamedObjectDecl, toks TokenStream, depth int) {
	switch kind {
	case ValueObject:
		b.WriteString(e.resolveIdent(obj.TypeName))
		b.WriteString(" {\n")
		for _, cc := range obj.Children {
			e.emitChild(b, cc, depth+1)
		}
		b.WriteString(e.pad(depth))
		b.WriteString("}")
	case ValueNamedObject:
		b.WriteString(e.resolveIdent(named.Name))
		b.WriteString(": ")
		b.WriteString(e.resolveIdent(named.Object.TypeName))
		b.WriteString(" {\n")
		for _, cc := range named.Object.Children {
			e.emitChild(b, cc, depth+1)
		}
		b.WriteString(e.pad(depth))
		b.WriteString("}")
	default:
		b.WriteString(e.RenderTokens(toks))
	}
}

// RenderTokens serializes a TokenStream verbatim, resolving hash and slot
// references. This is also what the selector engine calls to get the
// "verbatim token-stream serialization" spec.md §4.4 compares predicates
// against, so it must stay whitespace-stable.
func (e *Emitter) RenderTokens(ts TokenStream) string {
	var b strings.Builder
	for i, t := range ts {
		if i > 0 && needsSpace(ts[i-1], t) {
			b.WriteString(" ")
		}
		e.renderToken(&b, t)
	}
	return b.String()
}

func (e *Emitter) renderToken(b *strings.Builder, t StreamToken) {
	switch t.Kind {
	case StreamGroup:
		b.WriteString(t.Open)
		b.WriteString(e.RenderTokens(t.Inner))
		b.WriteString(t.Close)
	case StreamSlotRef:
		if v, ok := e.expandTokenSlot(t.SlotName); ok {
			b.WriteString(v)
		} else {
			b.WriteString(fmt.Sprintf("~{%s}~", t.SlotName))
		}
	case StreamHashRef:
		b.WriteString(e.resolveHashChild(t.Hash))
	default:
		b.WriteString(t.Text)
	}
}

func (e *Emitter) expandTokenSlot(name string) (string, bool) {
	if e.Slots == nil {
		return "", false
	}
	toks, ok := e.Slots.ExpandTokens(name)
	if !ok {
		return "", false
	}
	return e.RenderTokens(toks), true
}

// needsSpace decides whether to insert a separating space between two
// adjacent rendered tokens so identifiers/numbers don't fuse together.
// Punctuation stays tight against its neighbors, matching typical QML/JS
// formatting.
func needsSpace(prev, next StreamToken) bool {
	tight := map[string]bool{".": true, "(": true, ")": true, "[": true, "]": true, ",": true, ";": true}
	if prev.Kind == StreamSymbol && tight[prev.Text] {
		return false
	}
	if next.Kind == StreamSymbol && tight[next.Text] {
		return false
	}
	if next.Kind == StreamGroup && (next.Open == "(" || next.Open == "[") {
		return false
	}
	return true
}
