package logging

import "testing"

func TestNewDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestValidateRejectsBadRedactionPattern(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Redaction.Enabled = true
	cfg.Redaction.Patterns = []string{"("}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unparseable regexp")
	}
}
