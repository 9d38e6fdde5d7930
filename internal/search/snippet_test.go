package search

import "testing"

func TestBuildSnippetCentersOnFirstMatch(t *testing.T) {
	content := "this is an introduction paragraph that goes on for a while before the important widget keyword finally shows up in the middle of everything, and then trails off into more unrelated padding text to push the total length well past the two hundred character snippet window so truncation kicks in on both sides of the match."
	snippet, ranges := buildSnippet(content, []string{"widget"})

	if len(ranges) == 0 {
		t.Fatalf("expected at least one highlight range")
	}
	r := ranges[0]
	if snippet[r.Start:r.End] != "widget" {
		t.Fatalf("highlight range %v does not point at %q in %q", r, "widget", snippet)
	}
}

func TestBuildSnippetNoTruncationWhenContentShort(t *testing.T) {
	content := "short content with widget in it"
	snippet, _ := buildSnippet(content, []string{"widget"})
	if snippet != content {
		t.Fatalf("snippet = %q, want untruncated %q", snippet, content)
	}
}

func TestBuildSnippetHighlightsEveryOccurrence(t *testing.T) {
	content := "bug bug bug"
	_, ranges := buildSnippet(content, []string{"bug"})
	if len(ranges) != 3 {
		t.Fatalf("expected 3 highlight ranges, got %d: %+v", len(ranges), ranges)
	}
}

func TestIsWhitespaceOnly(t *testing.T) {
	if !isWhitespaceOnly("   \n\t  ") {
		t.Fatalf("expected whitespace-only content to be detected")
	}
	if isWhitespaceOnly("a") {
		t.Fatalf("expected non-whitespace content to not be flagged")
	}
}
