package ignore

import "github.com/bmatcuk/doublestar/v4"

// Matcher checks file paths against a fixed set of patterns produced by
// Parser.ParseProject.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles patterns into a Matcher. Invalid patterns are
// skipped rather than rejected outright, since a malformed line in a
// vendor ignore file should never abort a sync.
func NewMatcher(patterns []string) *Matcher {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			continue
		}
		valid = append(valid, p)
	}
	return &Matcher{patterns: valid}
}

// Match reports whether path matches any pattern. Paths are matched
// with forward slashes regardless of OS, matching gitignore convention.
func (m *Matcher) Match(path string) bool {
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
