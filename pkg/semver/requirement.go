package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a comparator operator.
type Op int

const (
	OpExact     Op = iota // =I.J.K
	OpGreater             // >I.J.K
	OpGreaterEq           // >=I.J.K
	OpLess                // <I.J.K
	OpLessEq              // <=I.J.K
	OpTilde               // ~I.J.K
	OpCaret               // ^I.J.K
	OpWildcard            // I.J.*
)

var opPrefixes = map[Op]string{
	OpExact:     "=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpTilde:     "~",
	OpCaret:     "^",
	OpWildcard:  "",
}

// Comparator is a single constraint such as ">=1.2" or "~0.3.1".
// Minor and Patch are nil when omitted or written as a wildcard.
type Comparator struct {
	Op    Op
	Major uint64
	Minor *uint64
	Patch *uint64
	Pre   string
}

// ComparatorSet is a list of comparators that must all match.
type ComparatorSet []Comparator

// Requirement is a version range: a union of comparator sets.
// A requirement with a single empty set matches every release version.
type Requirement struct {
	Sets []ComparatorSet
}

// Any is the requirement "*".
var Any = Requirement{Sets: []ComparatorSet{{}}}

// ParseRequirement parses a version requirement.
//
// The Cargo syntax is accepted (comma separated comparators, a bare version
// means caret) together with the npm extensions: whitespace separated
// comparators, "||" unions, x/X/* wildcards and hyphen ranges "a - b".
// An empty string or "*" matches any release.
func ParseRequirement(s string) (Requirement, error) {
	var req Requirement
	for _, part := range strings.Split(s, "||") {
		set, err := parseSet(part)
		if err != nil {
			return Requirement{}, fmt.Errorf("%w (in %q)", err, s)
		}
		req.Sets = append(req.Sets, set)
	}
	return req, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
func MustParseRequirement(s string) Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseSet(s string) (ComparatorSet, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	set := ComparatorSet{}
	for i := 0; i < len(fields); i++ {
		field := fields[i]

		// operator separated from its version: ">= 1.2"
		if isOperator(field) {
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%w: dangling operator %q", ErrInvalid, field)
			}
			i++
			field += fields[i]
		}

		// hyphen range: "1.2.3 - 2.3"
		if i+2 < len(fields) && fields[i+1] == "-" {
			lo, err := parsePartial(field)
			if err != nil {
				return nil, err
			}
			hi, err := parsePartial(fields[i+2])
			if err != nil {
				return nil, err
			}
			i += 2
			if !lo.wild {
				set = append(set, lo.comparator(OpGreaterEq))
			}
			if !hi.wild {
				set = append(set, hi.comparator(OpLessEq))
			}
			continue
		}

		c, skip, err := parseComparator(field)
		if err != nil {
			return nil, err
		}
		if !skip {
			set = append(set, c)
		}
	}
	return set, nil
}

func isOperator(s string) bool {
	switch s {
	case "=", ">", ">=", "<", "<=", "~", "^", "~>":
		return true
	}
	return false
}

// parseComparator parses one comparator. skip is true when the comparator
// matches everything ("*", "x", ">=*").
func parseComparator(s string) (c Comparator, skip bool, err error) {
	op, rest, explicit := splitOp(s)
	p, err := parsePartial(rest)
	if err != nil {
		return Comparator{}, false, err
	}
	if p.wild {
		return Comparator{}, true, nil
	}
	if !explicit {
		op = OpCaret
	}
	if p.hasWildcard && (op == OpExact || !explicit) {
		op = OpWildcard
	}
	return p.comparator(op), false, nil
}

func splitOp(s string) (Op, string, bool) {
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, s[2:], true
	case strings.HasPrefix(s, "<="):
		return OpLessEq, s[2:], true
	case strings.HasPrefix(s, "~>"):
		return OpTilde, s[2:], true
	case strings.HasPrefix(s, ">"):
		return OpGreater, s[1:], true
	case strings.HasPrefix(s, "<"):
		return OpLess, s[1:], true
	case strings.HasPrefix(s, "="):
		return OpExact, s[1:], true
	case strings.HasPrefix(s, "~"):
		return OpTilde, s[1:], true
	case strings.HasPrefix(s, "^"):
		return OpCaret, s[1:], true
	}
	return OpCaret, s, false
}

type partial struct {
	major, minor, patch *uint64
	pre                 string
	hasWildcard         bool
	wild                bool // no concrete major at all
}

func (p partial) comparator(op Op) Comparator {
	return Comparator{Op: op, Major: *p.major, Minor: p.minor, Patch: p.patch, Pre: p.pre}
}

func isWildcard(s string) bool { return s == "*" || s == "x" || s == "X" }

func parsePartial(s string) (partial, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return partial{}, fmt.Errorf("%w: missing version", ErrInvalid)
	}
	s, _, _ = strings.Cut(s, "+")
	core, pre, hasPre := strings.Cut(s, "-")

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return partial{}, fmt.Errorf("%w: too many components in %q", ErrInvalid, s)
	}

	var p partial
	slots := []**uint64{&p.major, &p.minor, &p.patch}
	for i, part := range parts {
		if isWildcard(part) {
			p.hasWildcard = true
			if i == 0 {
				p.wild = true
			}
			break
		}
		n, err := parseNumber(part)
		if err != nil {
			return partial{}, err
		}
		*slots[i] = &n
	}

	if hasPre {
		if p.patch == nil {
			return partial{}, fmt.Errorf("%w: prerelease on partial version %q", ErrInvalid, s)
		}
		if err := validateIdentifiers(pre, true); err != nil {
			return partial{}, err
		}
		p.pre = pre
	}
	return p, nil
}

// String renders the requirement, joining sets with " || ".
func (r Requirement) String() string {
	sets := make([]string, 0, len(r.Sets))
	for _, set := range r.Sets {
		sets = append(sets, set.String())
	}
	return strings.Join(sets, " || ")
}

// String renders the set, or "*" for an empty set.
func (s ComparatorSet) String() string {
	if len(s) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(s))
	for _, c := range s {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}

// String renders the comparator in Cargo syntax.
func (c Comparator) String() string {
	var b strings.Builder
	b.WriteString(opPrefixes[c.Op])
	b.WriteString(strconv.FormatUint(c.Major, 10))
	switch {
	case c.Minor == nil:
		if c.Op == OpWildcard {
			b.WriteString(".*")
		}
	case c.Patch == nil:
		b.WriteString("." + strconv.FormatUint(*c.Minor, 10))
		if c.Op == OpWildcard {
			b.WriteString(".*")
		}
	default:
		b.WriteString("." + strconv.FormatUint(*c.Minor, 10))
		b.WriteString("." + strconv.FormatUint(*c.Patch, 10))
		if c.Pre != "" {
			b.WriteString("-" + c.Pre)
		}
	}
	return b.String()
}
