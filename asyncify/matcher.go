package asyncify

import (
	"slices"
	"strings"
)

// splitName splits a call name at its last dot into qualifier and short name.
// "net.http.Get" yields ("net.http", "Get"); "sleep" yields ("", "sleep").
func splitName(name string) (qualifier, short string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// ExactMatcher matches exact "pkg.name" or just "name" patterns.
type ExactMatcher struct {
	patterns map[string]bool
}

// NewExactMatcher creates a matcher from a list of patterns.
// Patterns can be "name" (matches any qualifier) or "pkg.name" (exact match).
func NewExactMatcher(patterns []string) *ExactMatcher {
	m := &ExactMatcher{patterns: make(map[string]bool)}
	for _, p := range patterns {
		m.patterns[p] = true
	}
	return m
}

// Match returns true if the call name matches any pattern.
func (m *ExactMatcher) Match(name string) bool {
	if m.patterns[name] {
		return true
	}
	_, short := splitName(name)
	return m.patterns[short]
}

// WildcardMatcher matches call names with wildcard support.
//
// Supports patterns like:
//   - "pkg.name" - exact match
//   - "name" - matches this name under any qualifier
//   - "pkg.*" - matches every call qualified by pkg
//   - "*" - matches everything
type WildcardMatcher struct {
	exact     map[string]bool // exact "pkg.name" matches
	names     map[string]bool // unqualified "name" matches
	qualWilds map[string]bool // "pkg.*" matches
	matchAll  bool            // "*" matches everything
}

// NewWildcardMatcher creates a matcher with wildcard support.
func NewWildcardMatcher(patterns []string) *WildcardMatcher {
	m := &WildcardMatcher{
		exact:     make(map[string]bool),
		names:     make(map[string]bool),
		qualWilds: make(map[string]bool),
	}
	for _, p := range patterns {
		if p == "*" {
			m.matchAll = true
		} else if strings.HasSuffix(p, ".*") {
			m.qualWilds[strings.TrimSuffix(p, ".*")] = true
		} else if strings.Contains(p, ".") {
			m.exact[p] = true
		} else {
			m.names[p] = true
		}
	}
	return m
}

// Match returns true if the call name matches any pattern.
func (m *WildcardMatcher) Match(name string) bool {
	if m.matchAll {
		return true
	}
	qual, short := splitName(name)
	if qual != "" && m.qualWilds[qual] {
		return true
	}
	if m.exact[name] {
		return true
	}
	return m.names[short]
}

// PrefixMatcher accepts every call in a namespace, such as "timer." for
// timer.after and timer.tick.
type PrefixMatcher struct {
	prefixes []string
}

func NewPrefixMatcher(prefixes []string) *PrefixMatcher {
	return &PrefixMatcher{prefixes: prefixes}
}

func (m *PrefixMatcher) Match(name string) bool {
	return slices.ContainsFunc(m.prefixes, func(p string) bool {
		return strings.HasPrefix(name, p)
	})
}

// CompositeMatcher accepts a call when any of its matchers does. Nil entries
// are skipped.
type CompositeMatcher struct {
	matchers []CallMatcher
}

func NewCompositeMatcher(matchers ...CallMatcher) *CompositeMatcher {
	return &CompositeMatcher{matchers: matchers}
}

func (m *CompositeMatcher) Match(name string) bool {
	return slices.ContainsFunc(m.matchers, func(c CallMatcher) bool {
		return c != nil && c.Match(name)
	})
}

// MatcherFunc lets a predicate over call names serve as a CallMatcher.
type MatcherFunc func(name string) bool

func (f MatcherFunc) Match(name string) bool { return f(name) }
