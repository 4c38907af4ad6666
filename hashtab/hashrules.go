package hashtab

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qmldiff/qmldiff/hash"
)

// matchKind selects how a single captured group of a MatchRule is checked.
type matchKind int

const (
	matchAny matchKind = iota
	matchHash
	matchLiteral
)

type groupCheck struct {
	kind    matchKind
	hash    uint64
	literal string
}

func (c groupCheck) matches(value string) bool {
	switch c.kind {
	case matchAny:
		return true
	case matchHash:
		return hash.Hash(value) == c.hash
	case matchLiteral:
		return value == c.literal
	}
	return false
}

// Rule is one hashrules record: a condition over existing hashtab strings,
// plus the generation-rule templates emitted for every match.
type Rule struct {
	alwaysFire bool
	regex      *regexp.Regexp
	checks     []groupCheck
	outputs    []string
}

// HashRules is a compiled rule set, as loaded by load_rules / §6.
type HashRules struct {
	rules []Rule
}

var numberedGroupRe = regexp.MustCompile(`\$(\d+)`)
var hashRefRe = regexp.MustCompile(`\[\[(\d+)\]\]`)

// CompileHashRules parses the `#`-record-separated hashrules format
// described in spec.md §4.8/§6 and authored in original_source's
// hashrules.rs: each record is a MatchRule line (or `A` for always-fire)
// followed by per-capture-group constraint lines for a Match rule, then the
// GenerationRule output lines, terminated by a line containing only `#`.
func CompileHashRules(contents string) (*HashRules, error) {
	lines := strings.Split(contents, "\n")
	i := 0
	next := func() (string, bool) {
		for i < len(lines) {
			l := lines[i]
			i++
			return l, true
		}
		return "", false
	}

	var rules []Rule
	for {
		instrLine, ok := next()
		if !ok {
			break
		}
		if instrLine == "" {
			continue
		}
		opcode := instrLine[0]
		rest := instrLine[1:]
		var rule Rule
		switch opcode {
		case 'A':
			rule.alwaysFire = true
		case 'M':
			re, err := regexp.Compile(rest)
			if err != nil {
				return nil, fmt.Errorf("hashrules: bad regex %q: %w", rest, err)
			}
			rule.regex = re
			groups := re.NumSubexp() + 1
			for g := 0; g < groups; g++ {
				line, ok := next()
				if !ok || line == "" {
					return nil, fmt.Errorf("hashrules: missing constraint for capture group %d of %q", g, rest)
				}
				check, err := parseGroupCheck(line)
				if err != nil {
					return nil, err
				}
				rule.checks = append(rule.checks, check)
			}
		default:
			return nil, fmt.Errorf("hashrules: unknown match opcode %q", opcode)
		}

		for {
			line, ok := next()
			if !ok || line == "#" {
				break
			}
			rule.outputs = append(rule.outputs, line)
		}
		rules = append(rules, rule)
	}
	return &HashRules{rules: rules}, nil
}

func parseGroupCheck(line string) (groupCheck, error) {
	opcode := line[0]
	rest := line[1:]
	switch opcode {
	case '-':
		return groupCheck{kind: matchAny}, nil
	case 'H':
		h, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return groupCheck{}, fmt.Errorf("hashrules: bad hash constraint %q: %w", rest, err)
		}
		return groupCheck{kind: matchHash, hash: h}, nil
	case 'E':
		return groupCheck{kind: matchLiteral, literal: rest}, nil
	default:
		return groupCheck{}, fmt.Errorf("hashrules: unknown constraint opcode %q", opcode)
	}
}

// Apply runs the rule set against t, inserting every generated value. Rules
// fire in input order and a later rule observes entries inserted by an
// earlier one, matching original_source's tab.extend-after-each-rule
// behavior (spec.md's prose is silent on whether rules can chain; the
// original implementation lets them).
func (r *HashRules) Apply(t *Table) {
	for _, rule := range r.rules {
		if rule.alwaysFire {
			for _, out := range rule.outputs {
				t.Insert(resolveHashRefs(out, t))
			}
			continue
		}
		for _, s := range t.Snapshot() {
			m := rule.regex.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			if !groupsMatch(rule.checks, m) {
				continue
			}
			for _, out := range rule.outputs {
				resolved := numberedGroupRe.ReplaceAllStringFunc(out, func(tok string) string {
					idx, _ := strconv.Atoi(tok[1:])
					if idx < len(m) {
						return m[idx]
					}
					return tok
				})
				t.Insert(resolveHashRefs(resolved, t))
			}
		}
	}
}

func groupsMatch(checks []groupCheck, m []string) bool {
	for i, check := range checks {
		if i >= len(m) || !check.matches(m[i]) {
			return false
		}
	}
	return true
}

func resolveHashRefs(s string, t *Table) string {
	return hashRefRe.ReplaceAllStringFunc(s, func(tok string) string {
		h, err := strconv.ParseUint(tok[2:len(tok)-2], 10, 64)
		if err != nil {
			return "INVALID!"
		}
		if original, ok := t.Lookup(h); ok {
			return original
		}
		return "INVALID!"
	})
}
