package asyncify

import "testing"

func TestExactMatcher(t *testing.T) {
	tests := []struct {
		name     string
		call     string
		patterns []string
		want     bool
	}{
		{
			name:     "match by short name only",
			patterns: []string{"sleep"},
			call:     "timer.sleep",
			want:     true,
		},
		{
			name:     "match by qualified name",
			patterns: []string{"timer.sleep"},
			call:     "timer.sleep",
			want:     true,
		},
		{
			name:     "no match different qualifier",
			patterns: []string{"timer.sleep"},
			call:     "other.sleep",
			want:     false,
		},
		{
			name:     "no match different name",
			patterns: []string{"sleep"},
			call:     "timer.log",
			want:     false,
		},
		{
			name:     "unqualified call",
			patterns: []string{"fetch"},
			call:     "fetch",
			want:     true,
		},
		{
			name:     "multiple patterns",
			patterns: []string{"read", "write", "io.close"},
			call:     "io.write",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewExactMatcher(tt.patterns)
			if got := m.Match(tt.call); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.call, got, tt.want)
			}
		})
	}
}

func TestWildcardMatcher(t *testing.T) {
	tests := []struct {
		name     string
		call     string
		patterns []string
		want     bool
	}{
		{"exact qualified", "net.fetch", []string{"net.fetch"}, true},
		{"short name any qualifier", "db.query", []string{"query"}, true},
		{"qualifier wildcard", "net.dial", []string{"net.*"}, true},
		{"qualifier wildcard nested", "net.http.get", []string{"net.http.*"}, true},
		{"qualifier wildcard no match", "db.query", []string{"net.*"}, false},
		{"qualifier wildcard ignores unqualified", "dial", []string{"net.*"}, false},
		{"match all", "anything.at.all", []string{"*"}, true},
		{"no patterns", "fetch", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWildcardMatcher(tt.patterns)
			if got := m.Match(tt.call); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.call, got, tt.want)
			}
		})
	}
}

func TestPrefixMatcher(t *testing.T) {
	m := NewPrefixMatcher([]string{"async.", "fetch"})
	tests := []struct {
		call string
		want bool
	}{
		{"async.read", true},
		{"fetchAll", true},
		{"sync.read", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.call); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.call, got, tt.want)
		}
	}
}

func TestCompositeMatcher(t *testing.T) {
	m := NewCompositeMatcher(
		NewExactMatcher([]string{"io.read"}),
		NewPrefixMatcher([]string{"net."}),
		MatcherFunc(func(name string) bool { return name == "custom" }),
	)

	tests := []struct {
		call string
		want bool
	}{
		{"io.read", true},
		{"net.dial", true},
		{"custom", true},
		{"io.write", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.call); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.call, got, tt.want)
		}
	}

	if NewCompositeMatcher().Match("anything") {
		t.Error("empty composite should not match")
	}
	if !NewCompositeMatcher(nil, NewPrefixMatcher([]string{"net."})).Match("net.dial") {
		t.Error("nil entries should be skipped")
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, qual, short string
	}{
		{"sleep", "", "sleep"},
		{"timer.sleep", "timer", "sleep"},
		{"net.http.get", "net.http", "get"},
		{".x", "", "x"},
	}
	for _, tt := range tests {
		qual, short := splitName(tt.in)
		if qual != tt.qual || short != tt.short {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tt.in, qual, short, tt.qual, tt.short)
		}
	}
}

func TestAsyncCallMatcherFallsBack(t *testing.T) {
	m := &asyncCallMatcher{
		patterns: NewWildcardMatcher([]string{"net.fetch", "sleep", "timer.*"}),
		fallback: NewPrefixMatcher([]string{"db."}),
	}

	tests := []struct {
		call string
		want bool
	}{
		{"net.fetch", true},
		{"timer.sleep", true},
		{"db.query", true},
		{"timer.after", true},
		{"net.dial", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.call); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.call, got, tt.want)
		}
	}

	bare := &asyncCallMatcher{patterns: NewWildcardMatcher([]string{"x"})}
	if bare.Match("y") {
		t.Error("matcher without fallback should not match unknown names")
	}
}
