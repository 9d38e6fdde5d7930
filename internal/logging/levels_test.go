package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for name, want := range cases {
		got, err := LevelFromString(name)
		if err != nil {
			t.Fatalf("LevelFromString(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLevelFromStringRejectsUnknown(t *testing.T) {
	if _, err := LevelFromString("trace"); err == nil {
		t.Fatal("expected error for unsupported level name")
	}
}
