package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/hashtab"
)

var reverseHash bool

var hashDiffsCmd = &cobra.Command{
	Use:   "hash-diffs <hashtab> <diff>...",
	Short: "rewrite diff files in place, hashing AFFECT file paths and RENAME targets (other identifiers and strings stay literal)",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tab, err := hashtab.Load(args[0], "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		for _, path := range args[1:] {
			if err := hashDiffFile(path, tab, reverseHash); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}
	},
}

func init() {
	hashDiffsCmd.Flags().BoolVarP(&reverseHash, "reverse", "r", false, "reverse: unhash identifiers/strings back to literal form")
}

func hashDiffFile(path string, tab *hashtab.Table, reverse bool) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rewritten, err := rewriteDiffText(string(text), tab, reverse)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(rewritten), 0o644)
}

// rewriteDiffText rewrites the two identifier positions the diffscript
// grammar models as hash-capable today, without reparsing into an AST and
// re-printing (which would lose comments and formatting): the AFFECT
// block's file target, and the new name after TO in any RENAME statement
// (RENAME ARGUMENT ... TO is left alone). Selector type names and property
// predicate names stay literal text: the patch author writes those against
// the readable source tree.
func rewriteDiffText(text string, tab *hashtab.Table, reverse bool) (string, error) {
	lex := diffscript.NewLexer(text)
	var out strings.Builder
	prevEnd := 0

	pendingFileRef := false
	pendingRenameTarget := false
	inArgRename := false

	for {
		tok := lex.Next()
		out.WriteString(text[prevEnd:tok.Pos])
		tokEnd := lex.Pos
		raw := text[tok.Pos:tokEnd]

		switch {
		case tok.Kind == diffscript.TokEOF:
			out.WriteString(text[tokEnd:])
			return out.String(), nil
		case pendingFileRef && (tok.Kind == diffscript.TokString || tok.Kind == diffscript.TokHashRef):
			raw = rewriteStringPosition(tok, tab, reverse)
			pendingFileRef = false
		case pendingRenameTarget && (tok.Kind == diffscript.TokIdent || tok.Kind == diffscript.TokHashRef):
			raw = rewriteIdentPosition(tok, tab, reverse)
			pendingRenameTarget = false
		}

		if tok.Kind == diffscript.TokKeyword {
			switch strings.ToUpper(tok.Val) {
			case "AFFECT":
				pendingFileRef = true
			case "RENAME":
				inArgRename = false
			case "ARGUMENT":
				inArgRename = true
			case "TO":
				if inArgRename {
					inArgRename = false
				} else {
					pendingRenameTarget = true
				}
			}
		}

		out.WriteString(raw)
		prevEnd = tokEnd
	}
}

// rewriteStringPosition converts a quoted-string file path to a `~&N&~`
// hash reference (forward) or a hash reference back to its quoted literal
// (reverse). Unknown strings/hashes are left untouched.
func rewriteStringPosition(tok diffscript.Token, tab *hashtab.Table, reverse bool) string {
	if reverse {
		if tok.Kind != diffscript.TokHashRef {
			return tok.Val
		}
		if s, ok := tab.Lookup(tok.Hash); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("~&%d&~", tok.Hash)
	}
	if tok.Kind != diffscript.TokString {
		return fmt.Sprintf("~&%d&~", tok.Hash)
	}
	literal := unquoteDiffString(tok.Val)
	if h, ok := tab.ReverseLookup(literal); ok {
		return fmt.Sprintf("~&%d&~", h)
	}
	return tok.Val
}

func rewriteIdentPosition(tok diffscript.Token, tab *hashtab.Table, reverse bool) string {
	if reverse {
		if tok.Kind != diffscript.TokHashRef {
			return tok.Val
		}
		if s, ok := tab.Lookup(tok.Hash); ok {
			return s
		}
		return fmt.Sprintf("~&%d&~", tok.Hash)
	}
	if tok.Kind != diffscript.TokIdent {
		return fmt.Sprintf("~&%d&~", tok.Hash)
	}
	if h, ok := tab.ReverseLookup(tok.Val); ok {
		return fmt.Sprintf("~&%d&~", h)
	}
	return tok.Val
}

func unquoteDiffString(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
