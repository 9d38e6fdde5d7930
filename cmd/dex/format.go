package main

import (
	"time"

	"github.com/tvergho/dex/internal/model"
)

const displayTimeLayout = "2006-01-02 15:04"

// conversationTitle returns c.Title, falling back to the subtitle and
// finally a placeholder so list/search output never prints an empty cell.
func conversationTitle(c model.Conversation) string {
	if c.Title != "" {
		return c.Title
	}
	if c.Subtitle != "" {
		return c.Subtitle
	}
	return "(untitled)"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(displayTimeLayout)
}
