package qml

// File is the parsed form of one QML source file: an ordered list of
// imports followed by one or more top-level objects.
type File struct {
	Imports []Import
	Objects []*Object
}

// Import is a fully-qualified, dotted module name plus a version string and
// an optional local alias, e.g. `import QtQuick 2.0 as Quick`.
type Import struct {
	Name    string
	Version string
	Alias   string
}

// Ident is an identifier that may be written either as a literal string or
// as a hashed marker (~&N&~) resolved through the hashtab. The two forms
// are semantically equivalent once the hash resolves.
type Ident struct {
	Literal string
	Hash    uint64
	Hashed  bool
}

// Text returns the literal spelling of the identifier, resolving through
// resolve when the identifier is a hash reference. ok is false when a hash
// reference could not be resolved.
func (id Ident) Text(resolve func(uint64) (string, bool)) (string, bool) {
	if !id.Hashed {
		return id.Literal, true
	}
	if resolve == nil {
		return "", false
	}
	return resolve(id.Hash)
}

// Object is a QML object: a (possibly hashed) type name and its ordered
// children.
type Object struct {
	TypeName Ident
	Children []Child
}

// Child is a tagged variant over the kinds of statements that can appear
// inside an Object body. Dispatch on the concrete type with a type switch;
// there is no base type to subclass.
type Child interface{}

// NamedObjectDecl binds a name to a nested object: `name: Foo { ... }`.
type NamedObjectDecl struct {
	Name   Ident
	Object *Object
}

// PropertyDecl is `property <type> <name>[: <value>]`.
type PropertyDecl struct {
	TypeName   string
	Name       string
	Readonly   bool
	Default    bool
	HasValue   bool
	ValueKind  ValueKind
	ValueObj   *Object
	ValueNamed *NamedObjectDecl
	Value      TokenStream
}

// Assignment is `<name>: <value>` where the target is a plain identifier.
type Assignment struct {
	Target    Ident
	ValueKind ValueKind
	ValueObj  *Object
	ValueNamed *NamedObjectDecl
	Value     TokenStream
}

// ValueKind discriminates what shape an Assignment/PropertyDecl value has.
type ValueKind int

const (
	ValueTokens ValueKind = iota
	ValueObject
	ValueNamedObject
)

// Arg is one argument of a Function or Signal.
type Arg struct {
	Name     string
	TypeName string
}

// Function is `function name(args) { body }`; the body is kept as an
// opaque, balanced token stream rather than re-parsed as JS.
type Function struct {
	Name string
	Args []Arg
	Body TokenStream
}

// Signal is `signal name(args)`.
type Signal struct {
	Name string
	Args []Arg
}

// Enum is `enum Name { A, B: 2, ... }`.
type Enum struct {
	Name    string
	Members []EnumMember
}

// EnumMember is one name/value pair inside an Enum.
type EnumMember struct {
	Name  string
	Value int
}

// SlotReference is a textual hole `~{name}~` filled at emission time from a
// global Slot.
type SlotReference struct {
	Name string
}

// HashReference is `~&hash&~`, resolved at emission time by looking up hash
// in the hashtab.
type HashReference struct {
	Hash uint64
}

// Name returns the declared name of a child, for children that have one.
// A hashed name reports ok as false.
func Name(c Child) (string, bool) {
	switch v := c.(type) {
	case *NamedObjectDecl:
		return v.Name.Literal, !v.Name.Hashed
	case *PropertyDecl:
		return v.Name, true
	case *Assignment:
		return v.Target.Literal, !v.Target.Hashed
	case *Function:
		return v.Name, true
	case *Signal:
		return v.Name, true
	case *Enum:
		return v.Name, true
	}
	return "", false
}

// KindName returns the identifier a selector type-filter matches against:
// the object type for Object/NamedObjectDecl/Assignment-to-object children,
// and the declared name for Property/Function/Signal/Enum children.
func KindName(c Child) (string, bool) {
	switch v := c.(type) {
	case *Object:
		return v.TypeName.Literal, !v.TypeName.Hashed
	case *NamedObjectDecl:
		return v.Object.TypeName.Literal, !v.Object.TypeName.Hashed
	case *Assignment:
		switch v.ValueKind {
		case ValueObject:
			return v.ValueObj.TypeName.Literal, !v.ValueObj.TypeName.Hashed
		case ValueNamedObject:
			return v.ValueNamed.Object.TypeName.Literal, !v.ValueNamed.Object.TypeName.Hashed
		}
		return "", false
	case *PropertyDecl:
		return v.Name, true
	case *Function:
		return v.Name, true
	case *Signal:
		return v.Name, true
	case *Enum:
		return v.Name, true
	}
	return "", false
}
