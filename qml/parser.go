package qml

import (
	"fmt"
)

// ParseError reports a grammar failure at a source position, per spec.md §7.
type ParseError struct {
	File     string
	Line     int
	Col      int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: ParseError: expected %s, found %s", e.File, e.Line, e.Col, e.Expected, e.Found)
}

type parser struct {
	lex  *Lexer
	file string
}

// Parse parses QML source text into a *File. file is used only to annotate
// error positions.
func Parse(file, text string) (f *File, err error) {
	p := &parser{lex: NewLexer(text), file: file}
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(*LexError); ok {
				le.File = file
				err = le
				return
			}
			if pe, ok := r.(*parseFailure); ok {
				line, col := lineCol(text, pe.pos)
				err = &ParseError{File: file, Line: line, Col: col, Expected: pe.expected, Found: pe.found}
				return
			}
			panic(r)
		}
	}()
	f = p.parseFile()
	return f, nil
}

// ParseChildren parses text as a bare sequence of children with no
// enclosing object braces, the shape a patch's `INSERT { ... }` body takes.
func ParseChildren(file, text string) (children []Child, err error) {
	p := &parser{lex: NewLexer(text), file: file}
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(*LexError); ok {
				le.File = file
				err = le
				return
			}
			if pe, ok := r.(*parseFailure); ok {
				line, col := lineCol(text, pe.pos)
				err = &ParseError{File: file, Line: line, Col: col, Expected: pe.expected, Found: pe.found}
				return
			}
			panic(r)
		}
	}()
	p.skipNewlines()
	for p.lex.Peek().Kind != TokEOF {
		children = append(children, p.parseChild())
		p.skipNewlines()
	}
	return children, nil
}

// ParseTokenStream lexes text into a bare TokenStream, used by the
// token-stream rewriter to turn a rewriter literal like `!global.visible &&
// myValue` into the same token shape held by a property's Value.
func ParseTokenStream(file, text string) (ts TokenStream, err error) {
	p := &parser{lex: NewLexer(text), file: file}
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(*LexError); ok {
				le.File = file
				err = le
				return
			}
			if pe, ok := r.(*parseFailure); ok {
				line, col := lineCol(text, pe.pos)
				err = &ParseError{File: file, Line: line, Col: col, Expected: pe.expected, Found: pe.found}
				return
			}
			panic(r)
		}
	}()
	for {
		p.skipNewlines()
		if p.lex.Peek().Kind == TokEOF {
			return ts, nil
		}
		ts = append(ts, p.readStreamElement())
	}
}

type parseFailure struct {
	pos      int
	expected string
	found    string
}

func (p *parser) fail(pos int, expected, found string) {
	panic(&parseFailure{pos: pos, expected: expected, found: found})
}

func (p *parser) skipNewlines() {
	for p.lex.Peek().Kind == TokNewline {
		p.lex.Next()
	}
}

func (p *parser) parseFile() *File {
	f := &File{}
	p.skipNewlines()
	for p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "import" {
		f.Imports = append(f.Imports, p.parseImport())
		p.skipNewlines()
	}
	for p.lex.Peek().Kind != TokEOF {
		obj := p.parseTopLevelObject()
		f.Objects = append(f.Objects, obj)
		p.skipNewlines()
	}
	return f
}

func (p *parser) parseImport() Import {
	p.lex.Expect(TokKeyword, "import")
	name := p.lex.Expect(TokIdent, "").Val
	ver := ""
	if p.lex.Peek().Kind == TokNumber {
		ver = p.lex.Next().Val
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "." {
			p.lex.Next()
			ver += "." + p.lex.Expect(TokNumber, "").Val
		}
	}
	alias := ""
	if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "as" {
		p.lex.Next()
		alias = p.lex.Expect(TokIdent, "").Val
	}
	return Import{Name: name, Version: ver, Alias: alias}
}

func (p *parser) parseIdent() Ident {
	tok := p.lex.Peek()
	if tok.Kind == TokHashRef {
		p.lex.Next()
		return Ident{Hash: tok.Hash, Hashed: true}
	}
	if tok.Kind == TokIdent {
		p.lex.Next()
		return Ident{Literal: tok.Val}
	}
	p.fail(tok.Pos, "identifier or hash reference", fmt.Sprintf("%q", tok.Val))
	return Ident{}
}

func (p *parser) parseTopLevelObject() *Object {
	return p.parseAnonymousObject()
}

func (p *parser) parseAnonymousObject() *Object {
	typeName := p.parseIdent()
	p.lex.Expect(TokSymbol, "{")
	obj := &Object{TypeName: typeName}
	p.parseObjectBody(obj)
	return obj
}

func (p *parser) parseObjectBody(obj *Object) {
	p.skipNewlines()
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == "}" {
			p.lex.Next()
			return
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, "`}`", "end of file")
		}
		obj.Children = append(obj.Children, p.parseChild())
		p.skipNewlines()
	}
}

func (p *parser) parseChild() Child {
	tok := p.lex.Peek()

	if tok.Kind == TokKeyword {
		switch tok.Val {
		case "property", "readonly", "default":
			return p.parsePropertyDecl()
		case "signal":
			return p.parseSignal()
		case "function":
			return p.parseFunction()
		case "enum":
			return p.parseEnum()
		}
	}
	if tok.Kind == TokSymbol && tok.Val == "~" {
		// Handled by the lexer as TokSlotRef/TokHashRef; fall through.
	}
	if tok.Kind == TokSlotRef {
		p.lex.Next()
		return &SlotReference{Name: tok.Val}
	}
	if tok.Kind == TokHashRef {
		p.lex.Next()
		return &HashReference{Hash: tok.Hash}
	}

	if tok.Kind == TokIdent || tok.Kind == TokHashRef {
		name := p.parseIdent()
		next := p.lex.Peek()
		if next.Kind == TokSymbol && next.Val == "{" {
			p.lex.Next()
			obj := &Object{TypeName: name}
			p.parseObjectBody(obj)
			return obj
		}
		if next.Kind == TokSymbol && next.Val == ":" {
			p.lex.Next()
			return p.parseNamedOrAssignment(name)
		}
		p.fail(next.Pos, "`{` or `:`", fmt.Sprintf("%q", next.Val))
	}
	p.fail(tok.Pos, "object, property, signal, function, or enum declaration", fmt.Sprintf("%q", tok.Val))
	return nil
}

// parseNamedOrAssignment parses what follows `name:` — either a named
// object declaration (`name: Type { ... }`) or an Assignment whose value is
// a named object (`name: inner: Type { ... }`) or a token stream.
func (p *parser) parseNamedOrAssignment(target Ident) Child {
	if p.isObjectStart() {
		typeName := p.parseIdent()
		p.lex.Expect(TokSymbol, "{")
		obj := &Object{TypeName: typeName}
		p.parseObjectBody(obj)
		return &NamedObjectDecl{Name: target, Object: obj}
	}
	kind, obj, named, toks := p.parseValue()
	return &Assignment{Target: target, ValueKind: kind, ValueObj: obj, ValueNamed: named, Value: toks}
}

// isObjectStart reports whether the upcoming tokens look like `Type {`,
// used to disambiguate a named object declaration from a plain assignment.
func (p *parser) isObjectStart() bool {
	tok := p.lex.Peek()
	if tok.Kind != TokIdent && tok.Kind != TokHashRef {
		return false
	}
	save := *p.lex
	p.lex.Next()
	isObj := p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "{"
	*p.lex = save
	return isObj
}

func (p *parser) parseValue() (ValueKind, *Object, *NamedObjectDecl, TokenStream) {
	if p.isObjectStart() {
		obj := p.parseAnonymousObject()
		return ValueObject, obj, nil, nil
	}
	tok := p.lex.Peek()
	if tok.Kind == TokIdent {
		save := *p.lex
		name := p.parseIdent()
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ":" {
			p.lex.Next()
			if p.isObjectStart() {
				typeName := p.parseIdent()
				p.lex.Expect(TokSymbol, "{")
				obj := &Object{TypeName: typeName}
				p.parseObjectBody(obj)
				return ValueNamedObject, nil, &NamedObjectDecl{Name: name, Object: obj}, nil
			}
		}
		*p.lex = save
	}
	return ValueTokens, nil, nil, p.captureValueStream()
}

// captureValueStream reads a TokenStream up to (but not consuming) the next
// newline or the enclosing object's closing brace at depth 0.
func (p *parser) captureValueStream() TokenStream {
	var out TokenStream
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokEOF || tok.Kind == TokNewline {
			return out
		}
		if tok.Kind == TokSymbol && tok.Val == "}" {
			return out
		}
		out = append(out, p.readStreamElement())
	}
}

// readStreamElement consumes one token-stream element, recursing into
// balanced bracket groups so nested structure survives without any grammar
// knowledge of what's inside.
func (p *parser) readStreamElement() StreamToken {
	tok := p.lex.Peek()
	switch tok.Kind {
	case TokSymbol:
		if tok.Val == "{" || tok.Val == "(" || tok.Val == "[" {
			return p.readGroup()
		}
		p.lex.Next()
		return StreamToken{Kind: StreamSymbol, Text: tok.Val}
	case TokIdent, TokKeyword:
		p.lex.Next()
		return StreamToken{Kind: StreamIdent, Text: tok.Val}
	case TokNumber:
		p.lex.Next()
		return StreamToken{Kind: StreamNumber, Text: tok.Val}
	case TokString:
		p.lex.Next()
		return StreamToken{Kind: StreamString, Text: tok.Val}
	case TokSlotRef:
		p.lex.Next()
		return StreamToken{Kind: StreamSlotRef, SlotName: tok.Val}
	case TokHashRef:
		p.lex.Next()
		return StreamToken{Kind: StreamHashRef, Hash: tok.Hash}
	case TokNewline:
		p.lex.Next()
		return StreamToken{Kind: StreamSymbol, Text: "\n"}
	}
	p.fail(tok.Pos, "token-stream element", fmt.Sprintf("%q", tok.Val))
	return StreamToken{}
}

var closingFor = map[string]string{"{": "}", "(": ")", "[": "]"}

func (p *parser) readGroup() StreamToken {
	open := p.lex.Next().Val
	close := closingFor[open]
	var inner TokenStream
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == close {
			p.lex.Next()
			return StreamToken{Kind: StreamGroup, Open: open, Close: close, Inner: inner}
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, fmt.Sprintf("closing %q", close), "end of file")
		}
		if tok.Kind == TokNewline {
			p.lex.Next()
			continue
		}
		inner = append(inner, p.readStreamElement())
	}
}

func (p *parser) parsePropertyDecl() *PropertyDecl {
	decl := &PropertyDecl{}
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokKeyword && tok.Val == "readonly" {
			p.lex.Next()
			decl.Readonly = true
			continue
		}
		if tok.Kind == TokKeyword && tok.Val == "default" {
			p.lex.Next()
			decl.Default = true
			continue
		}
		break
	}
	p.lex.Expect(TokKeyword, "property")
	decl.TypeName = p.lex.Expect(TokIdent, "").Val
	decl.Name = p.lex.Expect(TokIdent, "").Val
	if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ":" {
		p.lex.Next()
		decl.HasValue = true
		decl.ValueKind, decl.ValueObj, decl.ValueNamed, decl.Value = p.parseValue()
	}
	return decl
}

func (p *parser) parseArgs() []Arg {
	p.lex.Expect(TokSymbol, "(")
	var args []Arg
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == ")" {
			p.lex.Next()
			return args
		}
		if len(args) > 0 {
			p.lex.Expect(TokSymbol, ",")
		}
		first := p.lex.Expect(TokIdent, "").Val
		arg := Arg{Name: first}
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ":" {
			p.lex.Next()
			arg.TypeName = p.lex.Expect(TokIdent, "").Val
		}
		args = append(args, arg)
	}
}

func (p *parser) parseSignal() *Signal {
	p.lex.Expect(TokKeyword, "signal")
	name := p.lex.Expect(TokIdent, "").Val
	var args []Arg
	if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "(" {
		args = p.parseArgs()
	}
	return &Signal{Name: name, Args: args}
}

func (p *parser) parseFunction() *Function {
	p.lex.Expect(TokKeyword, "function")
	name := p.lex.Expect(TokIdent, "").Val
	args := p.parseArgs()
	p.lex.Expect(TokSymbol, "{")
	body := p.captureBracedBody()
	return &Function{Name: name, Args: args, Body: body}
}

// captureBracedBody reads the contents of a `{ ... }` block (the opening
// brace already consumed) up to and consuming its matching closing brace,
// returning only the interior tokens.
func (p *parser) captureBracedBody() TokenStream {
	var out TokenStream
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == "}" {
			p.lex.Next()
			return out
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, "`}`", "end of file")
		}
		if tok.Kind == TokNewline {
			p.lex.Next()
			continue
		}
		out = append(out, p.readStreamElement())
	}
}

func (p *parser) parseEnum() *Enum {
	p.lex.Expect(TokKeyword, "enum")
	name := p.lex.Expect(TokIdent, "").Val
	p.lex.Expect(TokSymbol, "{")
	var members []EnumMember
	next := 0
	p.skipNewlines()
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == "}" {
			p.lex.Next()
			break
		}
		memberName := p.lex.Expect(TokIdent, "").Val
		val := next
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ":" {
			p.lex.Next()
			numTok := p.lex.Expect(TokNumber, "")
			val = parseIntLiteral(numTok.Val)
		}
		members = append(members, EnumMember{Name: memberName, Value: val})
		next = val + 1
		p.skipNewlines()
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "," {
			p.lex.Next()
			p.skipNewlines()
		}
	}
	return &Enum{Name: name, Members: members}
}

func parseIntLiteral(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
