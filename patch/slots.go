// Package patch executes a parsed diffscript.Program against a qml.File:
// the traversal-stack applier, the token-stream rewriter, and the
// slot/template runtime that backs INSERT SLOT / INSERT TEMPLATE.
package patch

import "github.com/qmldiff/qmldiff/qml"

// Slot is a named, append-only accumulator of child-lists. Append adds a
// chunk; INSERT SLOT n splices the slot's expansion at the cursor, and
// expansion concatenates everything appended, in definition order, per
// spec.md §4.7. No diffscript statement appends to a slot: chunks arrive
// only through Append.
type Slot struct {
	Name     string
	chunks   [][]qml.Child
	readBack bool
}

// NewSlot constructs an empty, unread slot.
func NewSlot(name string) *Slot { return &Slot{Name: name} }

// Append records one more chunk of children appended to the slot.
func (s *Slot) Append(children []qml.Child) {
	s.chunks = append(s.chunks, children)
}

// Expand concatenates every appended chunk in order and marks the slot as
// having been read back — a global slot expanded more than once
// re-concatenates its accumulated chunks each time, rather than being
// consumed.
func (s *Slot) Expand() []qml.Child {
	s.readBack = true
	var out []qml.Child
	for _, chunk := range s.chunks {
		out = append(out, chunk...)
	}
	return out
}

// WasRead reports whether Expand has ever run, used by the engine to warn
// about slots defined but never referenced from any SlotReference.
func (s *Slot) WasRead() bool { return s.readBack }

// SlotTable is a named collection of Slots and implements qml.SlotResolver
// so the emitter can expand SlotReferences directly.
type SlotTable struct {
	slots map[string]*Slot
}

// NewSlotTable constructs an empty table.
func NewSlotTable() *SlotTable { return &SlotTable{slots: map[string]*Slot{}} }

// Get returns the named slot, creating it on first use.
func (t *SlotTable) Get(name string) *Slot {
	s, ok := t.slots[name]
	if !ok {
		s = NewSlot(name)
		t.slots[name] = s
	}
	return s
}

// ExpandChildren implements qml.SlotResolver.
func (t *SlotTable) ExpandChildren(name string) ([]qml.Child, bool) {
	s, ok := t.slots[name]
	if !ok {
		return nil, false
	}
	return s.Expand(), true
}

// ExpandTokens implements qml.SlotResolver for a slot reference appearing
// inside a token stream rather than directly in a child list: the slot's
// children are rendered to QML text and re-lexed as a flat token stream.
func (t *SlotTable) ExpandTokens(name string) (qml.TokenStream, bool) {
	children, ok := t.ExpandChildren(name)
	if !ok {
		return nil, false
	}
	em := qml.NewEmitter(nil, t)
	text := em.EmitChildren(children)
	ts, err := qml.ParseTokenStream("<slot:"+name+">", text)
	if err != nil {
		return nil, false
	}
	return ts, true
}

// Unused returns the names of every slot that has never been expanded,
// used to flag a defined-but-unreferenced slot as a likely authoring
// mistake in the patch file.
func (t *SlotTable) Unused() []string {
	var out []string
	for name, s := range t.slots {
		if !s.WasRead() {
			out = append(out, name)
		}
	}
	return out
}
