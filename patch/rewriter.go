package patch

import (
	"fmt"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/qml"
)

// RewriteError reports a token-stream rewriter failure: a LOCATE/REMOVE/
// REPLACE whose needle was never found, or a REMOVE LOCATED/REPLACE LOCATED
// with nothing located yet.
type RewriteError struct {
	Op     string
	Detail string
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("token-stream rewriter: %s: %s", e.Op, e.Detail)
}

// Rewriter operates REBUILD/REDEFINE's inner language against a flat
// token stream, per spec.md §4.6: its own cursor (an index into tokens)
// and a distinguished LOCATED slot remembering the last LOCATE match.
type Rewriter struct {
	tokens  qml.TokenStream
	cursor  int
	located qml.TokenStream
}

// NewRewriter starts a rewriter over a clone of initial — REBUILD's target
// is the property's value tokens; REDEFINE's additionally includes the
// `name :` prefix, which the caller assembles before construction.
func NewRewriter(initial qml.TokenStream) *Rewriter {
	return &Rewriter{tokens: initial.Clone()}
}

// Tokens returns the current state of the stream.
func (r *Rewriter) Tokens() qml.TokenStream { return r.tokens }

// Apply runs ops in order, stopping at the first error. Function-argument
// operations are the applier's responsibility, not the rewriter's — they
// act on the enclosing Function node rather than on token text.
func (r *Rewriter) Apply(ops []diffscript.RewriteOp) error {
	for _, op := range ops {
		if _, isArg := op.(*diffscript.RwArgOp); isArg {
			continue
		}
		if err := r.applyOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rewriter) applyOp(op diffscript.RewriteOp) error {
	switch v := op.(type) {
	case *diffscript.RwLocate:
		return r.locate(v)
	case *diffscript.RwInsert:
		r.tokens = spliceTokens(r.tokens, r.cursor, v.Tokens)
		r.cursor += len(v.Tokens)
		return nil
	case *diffscript.RwRemove:
		return r.remove(v)
	case *diffscript.RwReplace:
		return r.replace(v)
	}
	return fmt.Errorf("unsupported rewrite op %T", op)
}

func (r *Rewriter) locate(v *diffscript.RwLocate) error {
	if v.All {
		r.located = nil
		if v.Anchor == diffscript.Before {
			r.cursor = 0
		} else {
			r.cursor = len(r.tokens)
		}
		return nil
	}
	idx := findTokenStream(r.tokens, v.Needle, r.cursor)
	if idx < 0 {
		return &RewriteError{Op: "LOCATE", Detail: "needle not found"}
	}
	r.located = v.Needle.Clone()
	if v.Anchor == diffscript.Before {
		r.cursor = idx
	} else {
		r.cursor = idx + len(v.Needle)
	}
	return nil
}

func (r *Rewriter) remove(v *diffscript.RwRemove) error {
	if v.Located {
		if r.located == nil {
			return &RewriteError{Op: "REMOVE LOCATED", Detail: "nothing located"}
		}
		if !tokensEqualAt(r.tokens, r.cursor, r.located) {
			return &RewriteError{Op: "REMOVE LOCATED", Detail: "located slice is no longer at the cursor"}
		}
		r.tokens = removeRange(r.tokens, r.cursor, len(r.located))
		return nil
	}
	if v.Until {
		end := len(r.tokens)
		if !v.UntilAll {
			idx := findTokenStream(r.tokens, v.UntilNeed, r.cursor)
			if idx < 0 {
				return &RewriteError{Op: "REMOVE UNTIL", Detail: "terminator not found"}
			}
			end = idx
		}
		r.tokens = removeRange(r.tokens, r.cursor, end-r.cursor)
		return nil
	}
	if !tokensEqualAt(r.tokens, r.cursor, v.Needle) {
		return &RewriteError{Op: "REMOVE", Detail: "needle is not at the cursor"}
	}
	r.tokens = removeRange(r.tokens, r.cursor, len(v.Needle))
	return nil
}

func (r *Rewriter) replace(v *diffscript.RwReplace) error {
	start := r.cursor
	end := len(r.tokens)
	if v.Until {
		idx := findTokenStream(r.tokens, v.UntilNeed, start)
		if idx < 0 {
			return &RewriteError{Op: "REPLACE UNTIL", Detail: "terminator not found"}
		}
		end = idx
	}
	var needle qml.TokenStream
	if v.Located {
		if r.located == nil {
			return &RewriteError{Op: "REPLACE LOCATED", Detail: "nothing located"}
		}
		needle = r.located
	} else {
		needle = v.Needle
	}
	region := r.tokens[start:end]
	replaced := replaceAllOccurrences(region, needle, v.With)
	out := append(qml.TokenStream{}, r.tokens[:start]...)
	out = append(out, replaced...)
	out = append(out, r.tokens[end:]...)
	r.tokens = out
	r.cursor = start + len(replaced)
	return nil
}

// findTokenStream returns the index of the first occurrence of needle in
// haystack at or after from, scanning by structural equality, or -1.
func findTokenStream(haystack, needle qml.TokenStream, from int) int {
	if len(needle) == 0 {
		return from
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if tokensEqualAt(haystack, i, needle) {
			return i
		}
	}
	return -1
}

func tokensEqualAt(haystack qml.TokenStream, at int, needle qml.TokenStream) bool {
	if at < 0 || at+len(needle) > len(haystack) {
		return false
	}
	return haystack[at : at+len(needle)].Equal(needle)
}

func removeRange(ts qml.TokenStream, at, n int) qml.TokenStream {
	out := append(qml.TokenStream{}, ts[:at]...)
	return append(out, ts[at+n:]...)
}

func spliceTokens(ts qml.TokenStream, at int, ins qml.TokenStream) qml.TokenStream {
	out := append(qml.TokenStream{}, ts[:at]...)
	out = append(out, ins...)
	return append(out, ts[at:]...)
}

// replaceAllOccurrences scans region left to right, substituting with for
// every non-overlapping structural match of needle.
func replaceAllOccurrences(region, needle, with qml.TokenStream) qml.TokenStream {
	if len(needle) == 0 {
		return append(qml.TokenStream{}, region...)
	}
	var out qml.TokenStream
	i := 0
	for i < len(region) {
		if i+len(needle) <= len(region) && region[i:i+len(needle)].Equal(needle) {
			out = append(out, with...)
			i += len(needle)
			continue
		}
		out = append(out, region[i])
		i++
	}
	return out
}
