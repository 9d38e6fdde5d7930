package search

import (
	"regexp"
	"strings"
)

// Query is a parsed search string: named filters pulled out of the raw
// input, plus whatever free text remained.
type Query struct {
	Raw      string
	FreeText string
	Source   string
	Model    string
	File     string
}

// filterPattern matches a single whitespace-delimited "prefix:value" token.
// Prefixes are case-insensitive; the value is a single token with no
// embedded spaces.
var filterPattern = regexp.MustCompile(`(?i)(^|\s)(source|model|file):(\S+)`)

// ParseQuery extracts source:/model:/file: filters from raw, left to
// right, and returns whatever free text remains after every recognized
// prefix is removed and the result is trimmed. Repeated prefixes overwrite
// the earlier value, last one wins, matching the left-to-right removal
// order.
func ParseQuery(raw string) Query {
	q := Query{Raw: raw}

	free := filterPattern.ReplaceAllStringFunc(raw, func(match string) string {
		parts := filterPattern.FindStringSubmatch(match)
		prefix := strings.ToLower(parts[2])
		value := parts[3]
		switch prefix {
		case "source":
			q.Source = strings.ToLower(value)
		case "model":
			q.Model = value
		case "file":
			q.File = value
		}
		return parts[1]
	})

	q.FreeText = strings.TrimSpace(collapseSpaces(free))
	return q
}

var spacesPattern = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return spacesPattern.ReplaceAllString(s, " ")
}

// HasFreeText reports whether the query has any non-filter text left to
// search on.
func (q Query) HasFreeText() bool {
	return q.FreeText != ""
}

// HasFile reports whether a file: filter was present.
func (q Query) HasFile() bool {
	return q.File != ""
}

// FilterOnly reports whether the query is filters only, no free text and
// no file filter — a plain repository list, not a search.
func (q Query) FilterOnly() bool {
	return !q.HasFreeText() && !q.HasFile()
}
