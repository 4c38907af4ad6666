package diffscript

import "strings"

// String renders a Selector back to its surface syntax, used only to
// annotate PatchError with what was being looked for.
func (s Selector) String() string {
	parts := make([]string, len(s))
	for i, ns := range s {
		parts[i] = ns.String()
	}
	return strings.Join(parts, " > ")
}

func (ns NodeSelector) String() string {
	var b strings.Builder
	b.WriteString(ns.TypeName)
	for _, p := range ns.Predicates {
		b.WriteString(p.String())
	}
	return b.String()
}

func (p Predicate) String() string {
	switch p.Kind {
	case PredName:
		return ":" + p.Name
	case PredHasProp:
		return "!" + p.Name
	case PredPropEq:
		return "." + p.Name + "=" + p.Value
	case PredPropHas:
		return "." + p.Name + "~" + p.Value
	case PredIDSugar:
		return "#" + p.Value
	}
	return ""
}
