package enrich

import (
	"context"
)

// Provider generates a short title for one conversation's transcript text.
type Provider interface {
	// Name identifies the provider for EnrichResult.Provider.
	Name() string

	// GenerateTitle returns a raw model reply for transcript; the caller
	// extracts the first line and strips surrounding quotes and length.
	GenerateTitle(ctx context.Context, transcript string) (string, error)
}

const titlePrompt = `Read the following excerpt from a coding assistant conversation and reply with a single short title (at most 60 characters) that describes what the user was trying to accomplish. Reply with only the title, no quotes, no explanation.

Transcript:
%s`
