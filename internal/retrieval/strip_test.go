package retrieval

import (
	"strings"
	"testing"
)

func TestStripToolOutputRemovesThreeBacktickBlock(t *testing.T) {
	before := "before text"
	after := "after text"
	content := before + "\n---\n**Tool Output: bash**\n```\nsome output\nmore output\n```\n---\n" + after

	got := strings.TrimSpace(StripToolOutput(content))
	if got != before+after {
		t.Fatalf("StripToolOutput() = %q, want %q", got, before+after)
	}
	if strings.Contains(got, "some output") {
		t.Fatalf("StripToolOutput() left fenced content behind: %q", got)
	}
}

func TestStripToolOutputRemovesFourBacktickBlock(t *testing.T) {
	content := "lead\n---\n**Result**\n````\ncontains a ``` triple fence inside\n````\n---\ntrail"
	got := StripToolOutput(content)
	if strings.Contains(got, "triple fence inside") {
		t.Fatalf("StripToolOutput() left fenced content behind: %q", got)
	}
	if !strings.Contains(got, "lead") || !strings.Contains(got, "trail") {
		t.Fatalf("StripToolOutput() removed surrounding text: %q", got)
	}
}

func TestStripToolOutputLeavesPlainContentUntouched(t *testing.T) {
	content := "just a normal message with no fenced tool output"
	if got := StripToolOutput(content); got != content {
		t.Fatalf("StripToolOutput() = %q, want unchanged %q", got, content)
	}
}
