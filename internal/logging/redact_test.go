package logging

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tvergho/dex/internal/config"
)

func TestRedactingEncoderRedactsFieldName(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, RedactionConfig{
		Enabled: true,
		Fields:  []string{"api_key"},
	})
	if err != nil {
		t.Fatalf("NewRedactingEncoder() error = %v", err)
	}
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "test"}, []zapcore.Field{
		zapcore.Field{Key: "api_key", Type: zapcore.StringType, String: "sk-abc123"},
	})
	if err != nil {
		t.Fatalf("EncodeEntry() error = %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("sk-abc123")) {
		t.Fatal("expected api_key value to be redacted")
	}
}

func TestRedactingEncoderRedactsPattern(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, RedactionConfig{
		Enabled:  true,
		Patterns: []string{`(?i)bearer\s+\S+`},
	})
	if err != nil {
		t.Fatalf("NewRedactingEncoder() error = %v", err)
	}
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "test"}, []zapcore.Field{
		zapcore.Field{Key: "header", Type: zapcore.StringType, String: "Bearer sk-abc123"},
	})
	if err != nil {
		t.Fatalf("EncodeEntry() error = %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("sk-abc123")) {
		t.Fatal("expected bearer token to be redacted")
	}
}

func TestSecretFieldHidesValue(t *testing.T) {
	f := SecretField("api_key", config.Secret("sk-super-secret"))
	if f.Key != "api_key" {
		t.Fatalf("unexpected field key %q", f.Key)
	}
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("token", "abcdef")
	if f.String != "[REDACTED:6]" {
		t.Fatalf("RedactedString value = %q, want [REDACTED:6]", f.String)
	}
}
