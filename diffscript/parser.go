package diffscript

import (
	"fmt"
	"strings"

	"github.com/qmldiff/qmldiff/qml"
)

// ParseError reports a grammar failure at a source position.
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

// Loader resolves a LOAD directive's path to the patch source it names.
// LOAD is inlined at parse time: the loaded file's directives are spliced
// into the enclosing Program as though written in place.
type Loader func(path string) (string, error)

type parser struct {
	lex     *Lexer
	file    string
	loader  Loader
	program *Program
}

type parseFailure struct {
	pos      int
	expected string
	found    string
}

func (p *parser) fail(pos int, expected, found string) {
	panic(&parseFailure{pos: pos, expected: expected, found: found})
}

// Parse parses patch-language source text into a *Program, inlining any
// LOAD directives via loader.
func Parse(file, text string, loader Loader) (prog *Program, err error) {
	p := &parser{lex: NewLexer(text), file: file, loader: loader}
	p.program = &Program{Slots: map[string]*SlotDefinition{}, Templates: map[string]*TemplateDefinition{}}
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
			if e, ok := r.(error); ok {
				if _, isRuntime := e.(interface{ RuntimeError() }); !isRuntime {
					err = e
					return
				}
			}
			panic(r)
		}
	}()
	p.parseTopLevel()
	return p.program, nil
}

func (p *parser) parseTopLevel() {
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokEOF {
			return
		}
		if tok.Kind != TokKeyword {
			p.fail(tok.Pos, "VERSION, LOAD, SLOT, TEMPLATE, or AFFECT", fmt.Sprintf("%q", tok.Val))
		}
		switch tok.Val {
		case "VERSION":
			p.lex.Next()
			p.program.Version = unquote(p.lex.Expect(TokString, "").Val)
		case "LOAD":
			p.lex.Next()
			path := unquote(p.lex.Expect(TokString, "").Val)
			p.inlineLoad(path)
		case "SLOT":
			p.lex.Next()
			name := p.lex.Expect(TokIdent, "").Val
			p.program.Slots[name] = &SlotDefinition{Name: name}
		case "TEMPLATE":
			p.lex.Next()
			name := p.lex.Expect(TokIdent, "").Val
			p.lex.Expect(TokSymbol, "{")
			body := p.lex.CaptureBraceBody()
			children, err := qml.ParseChildren(p.file, body)
			if err != nil {
				panic(err)
			}
			p.program.Templates[name] = &TemplateDefinition{Name: name, Children: children}
		case "AFFECT":
			p.lex.Next()
			p.program.Affects = append(p.program.Affects, p.parseAffectBlock())
		default:
			p.fail(tok.Pos, "VERSION, LOAD, SLOT, TEMPLATE, or AFFECT", fmt.Sprintf("%q", tok.Val))
		}
	}
}

func (p *parser) inlineLoad(path string) {
	if p.loader == nil {
		p.fail(p.lex.Pos, "a LOAD resolver", "none configured")
	}
	text, err := p.loader(path)
	if err != nil {
		panic(err)
	}
	sub := &parser{lex: NewLexer(text), file: path, loader: p.loader, program: p.program}
	sub.parseTopLevel()
}

func (p *parser) parseAffectBlock() *AffectBlock {
	ref := p.parseFileRef()
	ab := &AffectBlock{File: ref}
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokKeyword && tok.Val == "END" {
			p.lex.Next()
			p.lex.Expect(TokKeyword, "AFFECT")
			return ab
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, "END AFFECT", "end of file")
		}
		ab.Statements = append(ab.Statements, p.parseStatement())
	}
}

func (p *parser) parseFileRef() FileRef {
	tok := p.lex.Peek()
	if tok.Kind == TokHashRef {
		p.lex.Next()
		return FileRef{Hash: tok.Hash, Hashed: true}
	}
	if tok.Kind == TokString {
		p.lex.Next()
		return FileRef{Literal: unquote(tok.Val)}
	}
	p.fail(tok.Pos, "file path string or hash reference", fmt.Sprintf("%q", tok.Val))
	return FileRef{}
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func (p *parser) parseStatement() Statement {
	tok := p.lex.Peek()
	if tok.Kind != TokKeyword {
		p.fail(tok.Pos, "a statement keyword", fmt.Sprintf("%q", tok.Val))
	}
	switch tok.Val {
	case "TRAVERSE":
		return p.parseTraverseBlock()
	case "ASSERT":
		p.lex.Next()
		return &AssertStmt{Selector: p.parseSelector()}
	case "LOCATE":
		return p.parseLocate()
	case "INSERT":
		return p.parseInsert()
	case "REMOVE":
		p.lex.Next()
		return &RemoveStmt{Selector: p.parseSelector()}
	case "REPLACE":
		return p.parseReplace()
	case "REPLICATE":
		return p.parseReplicateBlock()
	case "RENAME":
		return p.parseRename()
	case "IMPORT":
		return p.parseImportStmt()
	case "REBUILD":
		return p.parseRewriteBlock(Rebuild)
	case "REDEFINE":
		return p.parseRewriteBlock(Redefine)
	}
	p.fail(tok.Pos, "a statement keyword", fmt.Sprintf("%q", tok.Val))
	return nil
}

func (p *parser) parseTraverseBlock() *TraverseBlock {
	p.lex.Expect(TokKeyword, "TRAVERSE")
	sel := p.parseSelector()
	tb := &TraverseBlock{Selector: sel}
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokKeyword && tok.Val == "END" {
			p.lex.Next()
			p.lex.Expect(TokKeyword, "TRAVERSE")
			return tb
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, "END TRAVERSE", "end of file")
		}
		tb.Body = append(tb.Body, p.parseStatement())
	}
}

func (p *parser) parseReplicateBlock() *ReplicateBlock {
	p.lex.Expect(TokKeyword, "REPLICATE")
	sel := p.parseSelector()
	rb := &ReplicateBlock{Selector: sel}
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokKeyword && tok.Val == "END" {
			p.lex.Next()
			p.lex.Expect(TokKeyword, "REPLICATE")
			return rb
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, "END REPLICATE", "end of file")
		}
		rb.Body = append(rb.Body, p.parseStatement())
	}
}

func (p *parser) parseLocate() *LocateStmt {
	p.lex.Expect(TokKeyword, "LOCATE")
	anchor := p.parseAnchor()
	if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "ALL" {
		p.lex.Next()
		return &LocateStmt{Anchor: anchor, All: true}
	}
	return &LocateStmt{Anchor: anchor, Selector: p.parseSelector()}
}

func (p *parser) parseAnchor() LocateAnchor {
	tok := p.lex.Next()
	if tok.Kind != TokKeyword {
		p.fail(tok.Pos, "BEFORE or AFTER", fmt.Sprintf("%q", tok.Val))
	}
	switch tok.Val {
	case "BEFORE":
		return Before
	case "AFTER":
		return After
	}
	p.fail(tok.Pos, "BEFORE or AFTER", fmt.Sprintf("%q", tok.Val))
	return Before
}

func (p *parser) parseInsert() *InsertStmt {
	p.lex.Expect(TokKeyword, "INSERT")
	tok := p.lex.Peek()
	if tok.Kind == TokKeyword && tok.Val == "SLOT" {
		p.lex.Next()
		name := p.lex.Expect(TokIdent, "").Val
		return &InsertStmt{Kind: InsertSlot, SlotName: name}
	}
	if tok.Kind == TokKeyword && tok.Val == "TEMPLATE" {
		p.lex.Next()
		name := p.lex.Expect(TokIdent, "").Val
		args := p.parseTemplateArgs()
		return &InsertStmt{Kind: InsertTemplate, TemplateName: name, TemplateArgs: args}
	}
	p.lex.Expect(TokSymbol, "{")
	body := p.lex.CaptureBraceBody()
	children, err := qml.ParseChildren(p.file, body)
	if err != nil {
		panic(err)
	}
	return &InsertStmt{Kind: InsertQML, Children: children}
}

// parseTemplateArgs parses `{ name: { qml } , name2: { qml } }`.
func (p *parser) parseTemplateArgs() []TemplateArg {
	p.lex.Expect(TokSymbol, "{")
	var args []TemplateArg
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokSymbol && tok.Val == "}" {
			p.lex.Next()
			return args
		}
		if len(args) > 0 {
			if tok.Kind == TokSymbol && tok.Val == "," {
				p.lex.Next()
			}
		}
		name := p.lex.Expect(TokIdent, "").Val
		p.lex.Expect(TokSymbol, ":")
		p.lex.Expect(TokSymbol, "{")
		body := p.lex.CaptureBraceBody()
		children, err := qml.ParseChildren(p.file, body)
		if err != nil {
			panic(err)
		}
		args = append(args, TemplateArg{SlotName: name, Value: children})
	}
}

func (p *parser) parseReplace() *ReplaceStmt {
	p.lex.Expect(TokKeyword, "REPLACE")
	sel := p.parseSelector()
	p.lex.Expect(TokKeyword, "WITH")
	p.lex.Expect(TokSymbol, "{")
	body := p.lex.CaptureBraceBody()
	children, err := qml.ParseChildren(p.file, body)
	if err != nil {
		panic(err)
	}
	return &ReplaceStmt{Selector: sel, Replacement: children}
}

func (p *parser) parseRename() *RenameStmt {
	p.lex.Expect(TokKeyword, "RENAME")
	sel := p.parseSelector()
	p.lex.Expect(TokKeyword, "TO")
	name := p.parseTargetIdent()
	return &RenameStmt{Selector: sel, NewName: name}
}

func (p *parser) parseTargetIdent() qml.Ident {
	tok := p.lex.Next()
	if tok.Kind == TokHashRef {
		return qml.Ident{Hash: tok.Hash, Hashed: true}
	}
	if tok.Kind == TokIdent {
		return qml.Ident{Literal: tok.Val}
	}
	p.fail(tok.Pos, "identifier or hash reference", fmt.Sprintf("%q", tok.Val))
	return qml.Ident{}
}

func (p *parser) parseImportStmt() *ImportStmt {
	p.lex.Expect(TokKeyword, "IMPORT")
	name := p.lex.Expect(TokIdent, "").Val
	for p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "." {
		p.lex.Next()
		name += "." + p.lex.Expect(TokIdent, "").Val
	}
	ver := ""
	if p.lex.Peek().Kind == TokNumber {
		ver = p.lex.Next().Val
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == "." {
			p.lex.Next()
			ver += "." + p.lex.Expect(TokNumber, "").Val
		}
	}
	alias := ""
	if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "AS" {
		p.lex.Next()
		alias = p.lex.Expect(TokIdent, "").Val
	}
	return &ImportStmt{Name: name, Version: ver, Alias: alias}
}

// parseSelector parses a `>`-separated path of NodeSelectors.
func (p *parser) parseSelector() Selector {
	var sel Selector
	sel = append(sel, p.parseNodeSelector())
	for p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ">" {
		p.lex.Next()
		sel = append(sel, p.parseNodeSelector())
	}
	return sel
}

func (p *parser) parseNodeSelector() NodeSelector {
	ns := NodeSelector{}
	if p.lex.Peek().Kind == TokIdent {
		ns.TypeName = p.lex.Next().Val
	}
	for {
		tok := p.lex.Peek()
		if tok.Kind != TokSymbol {
			return ns
		}
		switch tok.Val {
		case ":":
			p.lex.Next()
			name := p.lex.Expect(TokIdent, "").Val
			ns.Predicates = append(ns.Predicates, Predicate{Kind: PredName, Name: name})
		case "!":
			p.lex.Next()
			name := p.lex.Expect(TokIdent, "").Val
			ns.Predicates = append(ns.Predicates, Predicate{Kind: PredHasProp, Name: name})
		case ".":
			p.lex.Next()
			name := p.lex.Expect(TokIdent, "").Val
			op := p.lex.Next()
			if op.Kind != TokSymbol || (op.Val != "=" && op.Val != "~") {
				p.fail(op.Pos, "`=` or `~`", fmt.Sprintf("%q", op.Val))
			}
			kind := PredPropEq
			if op.Val == "~" {
				kind = PredPropHas
			}
			val := p.parsePredicateValue()
			ns.Predicates = append(ns.Predicates, Predicate{Kind: kind, Name: name, Value: val})
		case "#":
			p.lex.Next()
			val := p.parsePredicateValue()
			ns.Predicates = append(ns.Predicates, Predicate{Kind: PredIDSugar, Name: "id", Value: val})
		default:
			return ns
		}
	}
}

func (p *parser) parsePredicateValue() string {
	tok := p.lex.Next()
	switch tok.Kind {
	case TokString, TokIdent, TokNumber:
		return tok.Val
	}
	p.fail(tok.Pos, "a predicate value", fmt.Sprintf("%q", tok.Val))
	return ""
}

// parseRewriteBlock parses the REBUILD/REDEFINE token-stream rewriter's
// inner language: LOCATE/INSERT/REMOVE/REPLACE over raw `{ ... }` token
// literals, plus the function-argument editing forms.
func (p *parser) parseRewriteBlock(kind RewriteKind) *RewriteBlock {
	kw := "REBUILD"
	if kind == Redefine {
		kw = "REDEFINE"
	}
	p.lex.Expect(TokKeyword, kw)
	prop := p.lex.Expect(TokIdent, "").Val
	rb := &RewriteBlock{Kind: kind, PropName: prop}
	for {
		tok := p.lex.Peek()
		if tok.Kind == TokKeyword && tok.Val == "END" {
			p.lex.Next()
			p.lex.Expect(TokKeyword, kw)
			return rb
		}
		if tok.Kind == TokEOF {
			p.fail(tok.Pos, fmt.Sprintf("END %s", kw), "end of file")
		}
		rb.Ops = append(rb.Ops, p.parseRewriteOp())
	}
}

func (p *parser) parseRewriteOp() RewriteOp {
	tok := p.lex.Peek()
	if tok.Kind != TokKeyword {
		p.fail(tok.Pos, "a rewriter operation keyword", fmt.Sprintf("%q", tok.Val))
	}
	switch tok.Val {
	case "LOCATE":
		p.lex.Next()
		anchor := p.parseAnchor()
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "ALL" {
			p.lex.Next()
			return &RwLocate{Anchor: anchor, All: true}
		}
		return &RwLocate{Anchor: anchor, Needle: p.parseTokenLiteral()}
	case "INSERT":
		p.lex.Next()
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "ARGUMENT" {
			return p.parseArgOp("insert")
		}
		return &RwInsert{Tokens: p.parseTokenLiteral()}
	case "REMOVE":
		p.lex.Next()
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "ARGUMENT" {
			return p.parseArgOp("remove")
		}
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "LOCATED" {
			p.lex.Next()
			return &RwRemove{Located: true}
		}
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "UNTIL" {
			p.lex.Next()
			if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "END" {
				p.lex.Next()
				return &RwRemove{Until: true, UntilAll: true}
			}
			return &RwRemove{Until: true, UntilNeed: p.parseTokenLiteral()}
		}
		return &RwRemove{Needle: p.parseTokenLiteral()}
	case "RENAME":
		p.lex.Next()
		p.lex.Expect(TokKeyword, "ARGUMENT")
		name := p.lex.Expect(TokIdent, "").Val
		p.lex.Expect(TokKeyword, "TO")
		newName := p.lex.Expect(TokIdent, "").Val
		op := &RwArgOp{Op: "rename", Name: name, NewName: newName}
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "AT" {
			p.lex.Next()
			op.Pos = p.parseIntTok()
		}
		return op
	case "REPLACE":
		p.lex.Next()
		rep := &RwReplace{}
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "LOCATED" {
			p.lex.Next()
			rep.Located = true
		} else {
			rep.Needle = p.parseTokenLiteral()
		}
		if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "UNTIL" {
			p.lex.Next()
			rep.Until = true
			rep.UntilNeed = p.parseTokenLiteral()
		}
		p.lex.Expect(TokKeyword, "WITH")
		rep.With = p.parseTokenLiteral()
		return rep
	}
	p.fail(tok.Pos, "a rewriter operation keyword", fmt.Sprintf("%q", tok.Val))
	return nil
}

func (p *parser) parseArgOp(op string) *RwArgOp {
	p.lex.Expect(TokKeyword, "ARGUMENT")
	name := p.lex.Expect(TokIdent, "").Val
	argop := &RwArgOp{Op: op, Name: name}
	if op == "insert" {
		if p.lex.Peek().Kind == TokSymbol && p.lex.Peek().Val == ":" {
			p.lex.Next()
			argop.TypeName = p.lex.Expect(TokIdent, "").Val
		}
	}
	if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "AT" {
		p.lex.Next()
		argop.Pos = p.parseIntTok()
	}
	return argop
}

func (p *parser) parseIntTok() int {
	tok := p.lex.Expect(TokNumber, "")
	n := 0
	for _, c := range tok.Val {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// parseTokenLiteral reads a rewriter needle/replacement literal, in either
// of its two source forms (spec.md §4.6): `{ ... }` balanced braces, or
// `STREAM <delim> ... <delim>` for content that isn't brace-balanced, where
// <delim> is whatever single token immediately follows STREAM.
func (p *parser) parseTokenLiteral() qml.TokenStream {
	if p.lex.Peek().Kind == TokKeyword && p.lex.Peek().Val == "STREAM" {
		p.lex.Next()
		delim := p.lex.Next()
		body := p.lex.CaptureUntilDelim(delim.Val)
		ts, err := qml.ParseTokenStream(p.file, strings.TrimSpace(body))
		if err != nil {
			panic(err)
		}
		return ts
	}
	p.lex.Expect(TokSymbol, "{")
	body := p.lex.CaptureBraceBody()
	ts, err := qml.ParseTokenStream(p.file, strings.TrimSpace(body))
	if err != nil {
		panic(err)
	}
	return ts
}
