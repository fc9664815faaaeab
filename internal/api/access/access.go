// Package access classifies request paths into the access level they need.
//
// A Table is an immutable, sorted list of rules. Both the auth gate and the
// role authorizer consult the same Table so they can never disagree about a
// route.
package access

import (
	"net/http"
	"slices"
	"strings"
)

// Kind is the class of access a route demands.
type Kind int

const (
	KindAuthenticated Kind = iota
	KindPublic
	KindRole
)

// Requirement is what a request must carry to reach a handler.
type Requirement struct {
	Kind Kind
	Role string
}

var (
	Public        = Requirement{Kind: KindPublic}
	Authenticated = Requirement{Kind: KindAuthenticated}
)

// Role returns the requirement for routes restricted to one role.
func Role(name string) Requirement {
	return Requirement{Kind: KindRole, Role: name}
}

func (r Requirement) String() string {
	switch r.Kind {
	case KindPublic:
		return "public"
	case KindRole:
		return "role:" + r.Role
	default:
		return "authenticated"
	}
}

// Visibility is the coarse view the auth gate needs.
type Visibility int

const (
	Protected Visibility = iota
	Open
)

// Match selects how a rule's pattern is compared with a path.
type Match int

const (
	Exact Match = iota
	Prefix
)

// Rule maps a path pattern, and optionally a method, to a requirement.
// A Prefix rule for /a/b covers /a/b and /a/b/... but not /a/bc.
type Rule struct {
	Pattern     string
	Match       Match
	Method      string
	Requirement Requirement
}

// Table is safe for concurrent use; it is never mutated after NewTable.
type Table struct {
	rules []Rule
}

// NewTable normalizes and orders rules. Exact rules come before prefix
// rules, longer prefixes before shorter ones and method-specific rules
// before method-less ones, so the result does not depend on the order the
// rules were declared in.
func NewTable(rules ...Rule) *Table {
	sorted := make([]Rule, len(rules))
	for i, r := range rules {
		r.Pattern = Normalize(r.Pattern)
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		sorted[i] = r
	}

	slices.SortStableFunc(sorted, func(a, b Rule) int {
		if a.Match != b.Match {
			return int(a.Match) - int(b.Match)
		}
		if len(a.Pattern) != len(b.Pattern) {
			return len(b.Pattern) - len(a.Pattern)
		}
		if (a.Method == "") != (b.Method == "") {
			if a.Method != "" {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Pattern, b.Pattern); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})

	return &Table{rules: sorted}
}

// Rules returns a copy of the ordered rules.
func (t *Table) Rules() []Rule {
	return slices.Clone(t.rules)
}

// Classify returns the requirement for a request. It is total: a path no
// rule matches is Authenticated, and OPTIONS is always Public.
func (t *Table) Classify(path, method string) Requirement {
	method = strings.ToUpper(method)
	if method == http.MethodOptions {
		return Public
	}

	p := Normalize(path)
	for _, r := range t.rules {
		if r.Method != "" && r.Method != method {
			continue
		}
		if r.matches(p) {
			return r.Requirement
		}
	}
	return Authenticated
}

// Visibility reports whether a request may proceed without a principal.
func (t *Table) Visibility(path, method string) Visibility {
	if t.Classify(path, method).Kind == KindPublic {
		return Open
	}
	return Protected
}

func (r Rule) matches(p string) bool {
	if r.Match == Exact {
		return p == r.Pattern
	}
	if r.Pattern == "/" {
		return true
	}
	return p == r.Pattern || strings.HasPrefix(p, r.Pattern+"/")
}

// Normalize collapses repeated slashes and strips a trailing slash, keeping
// the root path as "/".
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}
