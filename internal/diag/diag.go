// Package diag renders the `<file>:<line>:<col>: <kind>: <detail>`
// diagnostic line shape used across the lexer/parser/applier error
// taxonomy, colored the way gnoverse-tlin's internal/print.go colors lint
// issues.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/patch"
	"github.com/qmldiff/qmldiff/qml"
)

// Severity discriminates how a diagnostic is colored.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

var (
	kindStyle = map[Severity]*color.Color{
		SeverityError:   color.New(color.FgRed, color.Bold),
		SeverityWarning: color.New(color.FgYellow, color.Bold),
		SeverityInfo:    color.New(color.FgCyan, color.Bold),
	}
	locationStyle = color.New(color.FgBlue, color.Bold)
	detailStyle   = color.New(color.FgWhite)
)

func (s Severity) label() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "error"
	}
}

// Diagnostic is one positioned message.
type Diagnostic struct {
	File     string
	Line     int
	Col      int
	Kind     string // e.g. "ParseError", "PatchError", "AmbiguityError"
	Detail   string
	Severity Severity
}

// Format renders one diagnostic line. When useColor is false (non-tty output,
// or an explicit --no-color flag), styling is skipped entirely.
func Format(d Diagnostic, useColor bool) string {
	loc := fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col)
	label := d.Severity.label()
	if !useColor {
		return fmt.Sprintf("%s: %s: %s: %s", loc, label, d.Kind, d.Detail)
	}
	style := kindStyle[d.Severity]
	return locationStyle.Sprint(loc) + ": " + style.Sprint(label) + ": " + style.Sprint(d.Kind) + ": " + detailStyle.Sprint(d.Detail)
}

// FormatAll renders a batch of diagnostics, one per line.
func FormatAll(ds []Diagnostic, useColor bool) string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = Format(d, useColor)
	}
	return strings.Join(lines, "\n")
}

// FromError converts one of the typed errors in the qml/diffscript/patch
// packages into a Diagnostic, recovering its source position where the
// error carries one; errors with no position information land at 1:1.
func FromError(file string, err error) Diagnostic {
	switch e := err.(type) {
	case *qml.LexError:
		return Diagnostic{File: file, Line: e.Line, Col: e.Col, Kind: "LexError", Detail: e.Expected, Severity: SeverityError}
	case *qml.ParseError:
		return Diagnostic{File: file, Line: e.Line, Col: e.Col, Kind: "ParseError", Detail: fmt.Sprintf("expected %s, found %s", e.Expected, e.Found), Severity: SeverityError}
	case *diffscript.LexError:
		return Diagnostic{File: file, Line: e.Line, Col: e.Col, Kind: "LexError", Detail: e.Expected, Severity: SeverityError}
	case *diffscript.ParseError:
		return Diagnostic{File: file, Line: e.Line, Col: e.Col, Kind: "ParseError", Detail: fmt.Sprintf("expected %s, found %s", e.Expected, e.Found), Severity: SeverityError}
	case *patch.PatchError:
		return Diagnostic{File: e.File, Line: 1, Col: 1, Kind: "PatchError", Detail: fmt.Sprintf("%s: no match for selector %q", e.Statement, e.Selector), Severity: SeverityError}
	case *patch.AmbiguityError:
		return Diagnostic{File: e.File, Line: 1, Col: 1, Kind: "AmbiguityError", Detail: e.Statement, Severity: SeverityError}
	case *patch.TypeMismatchError:
		return Diagnostic{File: e.File, Line: 1, Col: 1, Kind: "TypeMismatch", Detail: e.Detail, Severity: SeverityError}
	case *patch.RewriteError:
		return Diagnostic{File: file, Line: 1, Col: 1, Kind: "RewriteError", Detail: fmt.Sprintf("%s: %s", e.Op, e.Detail), Severity: SeverityError}
	default:
		return Diagnostic{File: file, Line: 1, Col: 1, Kind: "Error", Detail: err.Error(), Severity: SeverityError}
	}
}
