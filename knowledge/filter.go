package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter is a conjunction of exact metadata matches.
type Filter map[string]string

var (
	clauseRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_./-]*)\s+eq\s+(?:'([^']*)'|"([^"]*)")`)
	andRE    = regexp.MustCompile(`(?i)^\s+and\s+`)
	anyAndRE = regexp.MustCompile(`(?i)\s+and\s+`)
)

// ParseFilter parses expressions such as
//
//	source eq 'handbook.md' and category eq "policy"
//
// Clauses are consumed left to right, so quoted values may contain "and".
// An empty or blank expression yields an empty filter.
func ParseFilter(expr string) (Filter, error) {
	rest := strings.TrimSpace(expr)
	if rest == "" {
		return Filter{}, nil
	}

	f := Filter{}
	for {
		m := clauseRE.FindStringSubmatchIndex(rest)
		if m == nil {
			return nil, fmt.Errorf("unsupported filter clause %q (expected: field eq 'value')", clauseText(rest))
		}

		value := ""
		switch {
		case m[4] >= 0:
			value = rest[m[4]:m[5]]
		case m[6] >= 0:
			value = rest[m[6]:m[7]]
		}
		f[rest[m[2]:m[3]]] = value

		rest = rest[m[1]:]
		if rest == "" {
			return f, nil
		}

		sep := andRE.FindStringIndex(rest)
		if sep == nil {
			return nil, fmt.Errorf("unexpected %q after filter clause (clauses are joined with 'and')", strings.TrimSpace(rest))
		}
		rest = rest[sep[1]:]
	}
}

// clauseText returns the offending clause for error messages.
func clauseText(rest string) string {
	if loc := anyAndRE.FindStringIndex(rest); loc != nil {
		return strings.TrimSpace(rest[:loc[0]])
	}
	return strings.TrimSpace(rest)
}

// Match reports whether metadata satisfies every clause.
func (f Filter) Match(metadata map[string]string) bool {
	for k, v := range f {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Where returns the filter as a chromem where clause (nil when empty).
func (f Filter) Where() map[string]string {
	if len(f) == 0 {
		return nil
	}
	return map[string]string(f)
}
