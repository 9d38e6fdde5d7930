package search

import "testing"

func TestParseQueryExtractsFilters(t *testing.T) {
	q := ParseQuery("source:cursor model:gpt-4 widget rendering bug")
	if q.Source != "cursor" {
		t.Fatalf("Source = %q, want cursor", q.Source)
	}
	if q.Model != "gpt-4" {
		t.Fatalf("Model = %q, want gpt-4", q.Model)
	}
	if q.FreeText != "widget rendering bug" {
		t.Fatalf("FreeText = %q, want %q", q.FreeText, "widget rendering bug")
	}
}

func TestParseQueryFiltersAreCaseInsensitive(t *testing.T) {
	q := ParseQuery("SOURCE:Cursor bug")
	if q.Source != "cursor" {
		t.Fatalf("Source = %q, want cursor", q.Source)
	}
}

func TestParseQueryFileFilterOnly(t *testing.T) {
	q := ParseQuery("file:main.go")
	if !q.HasFile() {
		t.Fatalf("expected HasFile() true")
	}
	if q.HasFreeText() {
		t.Fatalf("expected HasFreeText() false, got %q", q.FreeText)
	}
	if q.FilterOnly() {
		t.Fatalf("file: alone should not count as filter-only")
	}
}

func TestParseQueryFilterOnlyNoFreeTextNoFile(t *testing.T) {
	q := ParseQuery("source:codex model:o3")
	if !q.FilterOnly() {
		t.Fatalf("expected FilterOnly() true for %+v", q)
	}
}

func TestParseQueryFreeTextAndFileCombined(t *testing.T) {
	q := ParseQuery("fix the bug file:app.py")
	if q.FreeText != "fix the bug" {
		t.Fatalf("FreeText = %q, want %q", q.FreeText, "fix the bug")
	}
	if q.File != "app.py" {
		t.Fatalf("File = %q, want app.py", q.File)
	}
}

func TestParseQueryLastFilterWins(t *testing.T) {
	q := ParseQuery("source:cursor source:codex bug")
	if q.Source != "codex" {
		t.Fatalf("Source = %q, want codex (left-to-right, last wins)", q.Source)
	}
}
