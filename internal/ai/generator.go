// Package ai provides the backend adapter for language-model calls.
//
// The adapter is deliberately thin: one prompt in, raw text out, bounded
// by a hard timeout. It performs no retries and no response parsing;
// fallback policy belongs to the caller.
package ai

import "context"

// Generator produces raw text from a prompt. Implementations must honor
// context cancellation and return promptly on timeout.
type Generator interface {
	// Generate sends a single prompt and returns the backend's raw text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Healthy reports whether the backend is reachable and the configured
	// model is available.
	Healthy(ctx context.Context) bool
}
