package ignore

import "testing"

func TestMatcherMatchesPatterns(t *testing.T) {
	m := NewMatcher([]string{"**/node_modules/**", "**/*.pyc"})

	tests := []struct {
		path string
		want bool
	}{
		{"src/node_modules/left-pad/index.js", true},
		{"node_modules/left-pad/index.js", true},
		{"src/main.py", false},
		{"src/main.pyc", true},
		{"src/app.go", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatcherSkipsInvalidPatterns(t *testing.T) {
	m := NewMatcher([]string{"[invalid", "**/dist/**"})
	if !m.Match("web/dist/bundle.js") {
		t.Error("expected valid pattern to still match after skipping an invalid one")
	}
}

func TestMatcherEmptyPatternsMatchesNothing(t *testing.T) {
	m := NewMatcher(nil)
	if m.Match("anything.go") {
		t.Error("expected no match with empty pattern set")
	}
}
