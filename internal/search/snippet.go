package search

import (
	"sort"
	"strings"
)

const snippetWindow = 200

// buildSnippet returns a ~snippetWindow-byte window of content centered on
// the first occurrence of any of terms, with a literal "..." affixed
// wherever the window cuts content off, plus the byte-offset ranges of
// every term occurrence inside the returned snippet (not the original
// content — callers render highlights against the snippet text).
func buildSnippet(content string, terms []string) (string, []HighlightRange) {
	lower := strings.ToLower(content)
	firstIdx := -1
	for _, t := range terms {
		if t == "" {
			continue
		}
		if idx := strings.Index(lower, strings.ToLower(t)); idx >= 0 {
			if firstIdx == -1 || idx < firstIdx {
				firstIdx = idx
			}
		}
	}
	if firstIdx == -1 {
		firstIdx = 0
	}

	half := snippetWindow / 2
	start := firstIdx - half
	truncatedStart := start > 0
	if start < 0 {
		start = 0
		truncatedStart = false
	}
	end := start + snippetWindow
	truncatedEnd := end < len(content)
	if end > len(content) {
		end = len(content)
	}

	prefix, suffix := "", ""
	if truncatedStart {
		prefix = "..."
	}
	if truncatedEnd {
		suffix = "..."
	}
	snippet := prefix + content[start:end] + suffix

	var ranges []HighlightRange
	lowerSnippet := strings.ToLower(snippet)
	for _, t := range terms {
		if t == "" {
			continue
		}
		lt := strings.ToLower(t)
		searchFrom := 0
		for {
			idx := strings.Index(lowerSnippet[searchFrom:], lt)
			if idx < 0 {
				break
			}
			abs := searchFrom + idx
			ranges = append(ranges, HighlightRange{Start: abs, End: abs + len(t)})
			searchFrom = abs + len(lt)
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return snippet, ranges
}

// isWhitespaceOnly reports whether content has no non-whitespace runes,
// used to drop degenerate rows before they reach a result set.
func isWhitespaceOnly(content string) bool {
	return strings.TrimSpace(content) == ""
}
