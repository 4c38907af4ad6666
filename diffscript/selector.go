package diffscript

import (
	"strings"

	"github.com/qmldiff/qmldiff/qml"
)

// Resolver is the minimal hashtab surface the selector engine needs: turn a
// hash back into the literal text it was hashed from.
type Resolver interface {
	Lookup(h uint64) (string, bool)
}

// Match runs sel against root's children, per spec: NodeSelector[0] is
// matched against each child of root; each match recurses into that
// child's own children with NodeSelector[1], and so on. The result is the
// ordered set of matches at the final step, in source order.
func Match(sel Selector, root *qml.Object, resolver Resolver) []qml.Child {
	if len(sel) == 0 {
		return nil
	}
	em := qml.NewEmitter(asHashResolver(resolver), nil)
	return matchStep(sel, root.Children, em, resolver)
}

func matchStep(sel Selector, children []qml.Child, em *qml.Emitter, resolver Resolver) []qml.Child {
	ns := sel[0]
	var out []qml.Child
	for _, c := range children {
		if !matchNodeSelector(ns, c, em, resolver) {
			continue
		}
		if len(sel) == 1 {
			out = append(out, c)
			continue
		}
		inner, ok := objectChildrenOf(c)
		if !ok {
			continue
		}
		out = append(out, matchStep(sel[1:], inner, em, resolver)...)
	}
	return out
}

func matchNodeSelector(ns NodeSelector, c qml.Child, em *qml.Emitter, resolver Resolver) bool {
	if ns.TypeName != "" {
		kind, ok := qml.KindName(c)
		if !ok || kind != ns.TypeName {
			return false
		}
	}
	for _, pred := range ns.Predicates {
		if !matchPredicate(pred, c, em, resolver) {
			return false
		}
	}
	return true
}

func matchPredicate(pred Predicate, c qml.Child, em *qml.Emitter, resolver Resolver) bool {
	switch pred.Kind {
	case PredName:
		nd, isNamed := c.(*qml.NamedObjectDecl)
		if !isNamed {
			return false
		}
		text, ok := nd.Name.Text(resolveVia(em))
		return ok && text == pred.Name
	case PredHasProp:
		_, found := findProperty(c, pred.Name, em)
		return found
	case PredPropEq:
		val, found := findProperty(c, pred.Name, em)
		return found && val == pred.Value
	case PredPropHas:
		val, found := findProperty(c, pred.Name, em)
		return found && strings.Contains(val, pred.Value)
	case PredIDSugar:
		val, found := findProperty(c, "id", em)
		return found && val == pred.Value
	}
	return false
}

// ObjectOf returns the *qml.Object a matched child contributes as a new
// traversal root — used by TRAVERSE/REPLICATE, which push the matched
// child itself as the next current root rather than just reading its
// children in place.
func ObjectOf(c qml.Child) (*qml.Object, bool) {
	switch v := c.(type) {
	case *qml.Object:
		return v, true
	case *qml.NamedObjectDecl:
		return v.Object, true
	case *qml.Assignment:
		switch v.ValueKind {
		case qml.ValueObject:
			return v.ValueObj, true
		case qml.ValueNamedObject:
			return v.ValueNamed.Object, true
		}
	}
	return nil, false
}

// objectChildrenOf returns the child list to recurse into for a multi-step
// selector, for the child shapes that carry one.
func objectChildrenOf(c qml.Child) ([]qml.Child, bool) {
	switch v := c.(type) {
	case *qml.Object:
		return v.Children, true
	case *qml.NamedObjectDecl:
		return v.Object.Children, true
	case *qml.Assignment:
		switch v.ValueKind {
		case qml.ValueObject:
			return v.ValueObj.Children, true
		case qml.ValueNamedObject:
			return v.ValueNamed.Object.Children, true
		}
	}
	return nil, false
}

// findProperty looks for a PropertyDecl or Assignment named name among c's
// own children and renders its value as the verbatim token-stream text
// predicates compare against, per spec.md §4.4.
func findProperty(c qml.Child, name string, em *qml.Emitter) (string, bool) {
	children, ok := objectChildrenOf(c)
	if !ok {
		return "", false
	}
	for _, cc := range children {
		switch v := cc.(type) {
		case *qml.PropertyDecl:
			if v.Name == name && v.HasValue {
				return renderValue(v.ValueKind, v.ValueObj, v.ValueNamed, v.Value, em), true
			}
		case *qml.Assignment:
			target, ok := v.Target.Text(resolveVia(em))
			if ok && target == name {
				return renderValue(v.ValueKind, v.ValueObj, v.ValueNamed, v.Value, em), true
			}
		}
	}
	return "", false
}

func resolveVia(em *qml.Emitter) func(uint64) (string, bool) {
	return func(h uint64) (string, bool) {
		if em.Hashes == nil {
			return "", false
		}
		return em.Hashes.Lookup(h)
	}
}

func renderValue(kind qml.ValueKind, obj *qml.Object, named *qml.NamedObjectDecl, toks qml.TokenStream, em *qml.Emitter) string {
	switch kind {
	case qml.ValueObject:
		return em.Emit(&qml.File{Objects: []*qml.Object{obj}}).Output
	case qml.ValueNamedObject:
		return em.Emit(&qml.File{Objects: []*qml.Object{named.Object}}).Output
	default:
		return em.RenderTokens(toks)
	}
}

type resolverAdapter struct{ r Resolver }

func (a resolverAdapter) Lookup(h uint64) (string, bool) { return a.r.Lookup(h) }

func asHashResolver(r Resolver) qml.HashResolver {
	if r == nil {
		return nil
	}
	return resolverAdapter{r: r}
}
