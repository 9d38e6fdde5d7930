package main

import (
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
)

func TestConversationTitleFallsBackToSubtitleThenPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		c    model.Conversation
		want string
	}{
		{"title set", model.Conversation{Title: "fix the bug"}, "fix the bug"},
		{"subtitle only", model.Conversation{Subtitle: "short chat"}, "short chat"},
		{"neither set", model.Conversation{}, "(untitled)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conversationTitle(tt.c); got != tt.want {
				t.Errorf("conversationTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTimeZeroIsDash(t *testing.T) {
	if got := formatTime(time.Time{}); got != "-" {
		t.Errorf("formatTime(zero) = %q, want %q", got, "-")
	}
}

func TestFormatTimeNonZero(t *testing.T) {
	got := formatTime(time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC))
	if got != "2026-03-05 09:30" {
		t.Errorf("formatTime() = %q", got)
	}
}
