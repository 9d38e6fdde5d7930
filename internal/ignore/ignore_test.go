package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLine(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"   ":               "",
		"# a comment":       "",
		"!important.txt":    "",
		"*.log":             "*.log",
		"node_modules":      "**/node_modules/**",
		"node_modules/":     "node_modules/**",
		"vendor/cache":      "vendor/cache/**",
		"/dist":             "**/dist/**",
		"*.pyc":             "*.pyc",
		"**/build":          "**/build/**",
		"file.txt":          "**/file.txt",
	}

	for line, want := range cases {
		t.Run(line, func(t *testing.T) {
			if got := parseLine(line); got != want {
				t.Errorf("parseLine(%q) = %q, want %q", line, got, want)
			}
		})
	}
}

func writeIgnoreFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestParserParseProjectMergesAndDedupes(t *testing.T) {
	root := t.TempDir()

	writeIgnoreFile(t, root, ".gitignore", "# Build outputs\ndist/\nbuild/\n\n# Dependencies\nnode_modules/\n\n# Python\n*.pyc\n__pycache__/\n")
	writeIgnoreFile(t, root, ".dockerignore", "node_modules/\n.git/\n*.log\n")

	parser := NewParser([]string{".gitignore", ".dockerignore"}, []string{"fallback/**"})

	patterns, err := parser.ParseProject(root)
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}
	if len(patterns) == 0 {
		t.Fatal("ParseProject() returned no patterns from two populated ignore files")
	}

	seen := 0
	for _, p := range patterns {
		if p == "**/node_modules/**" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("node_modules pattern appeared %d times across both files, want exactly 1 after dedup", seen)
	}
}

func TestParserParseProjectFallsBackWithoutIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	fallback := []string{".git/**", "node_modules/**"}
	parser := NewParser([]string{".gitignore", ".dockerignore"}, fallback)

	patterns, err := parser.ParseProject(root)
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}
	if len(patterns) != len(fallback) {
		t.Fatalf("ParseProject() returned %d patterns, want the %d fallback patterns verbatim", len(patterns), len(fallback))
	}
	for i, p := range patterns {
		if p != fallback[i] {
			t.Errorf("patterns[%d] = %q, want %q", i, p, fallback[i])
		}
	}
}

func TestParserParseProjectOneFileMissing(t *testing.T) {
	root := t.TempDir()
	writeIgnoreFile(t, root, ".gitignore", "*.log\n")

	parser := NewParser([]string{".gitignore", ".dockerignore"}, []string{"fallback/**"})
	patterns, err := parser.ParseProject(root)
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}
	if len(patterns) != 1 || patterns[0] != "*.log" {
		t.Errorf("ParseProject() = %v, want a single pattern from the one file present", patterns)
	}
}

func TestDeduplicatePreservesFirstOccurrenceOrder(t *testing.T) {
	got := deduplicate([]string{"a", "b", "a", "c", "b", "d"})
	want := []string{"a", "b", "c", "d"}

	if len(got) != len(want) {
		t.Fatalf("deduplicate() returned %d items, want %d: %v", len(got), len(want), got)
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("deduplicate()[%d] = %q, want %q", i, got[i], v)
		}
	}
}

func TestDeduplicateEmptyInput(t *testing.T) {
	if got := deduplicate(nil); len(got) != 0 {
		t.Errorf("deduplicate(nil) = %v, want empty", got)
	}
}
