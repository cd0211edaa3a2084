package ai

import (
	"context"

	"github.com/hoanghonghuy/commitstream/internal/prompt"
)

// Result is the settled outcome of one generation. A nil *Result together
// with a nil error means the run was cancelled by the user; cancellation
// is not an error.
type Result struct {
	Text string
}

// StreamingProvider defines the interface for an AI backend that streams the
// generated commit message token by token.
type StreamingProvider interface {
	// StreamCommitMessage sends the prompt and streams the response. onText
	// is invoked after every received fragment with the cumulative text so
	// far, in arrival order, never after cancellation has been requested.
	StreamCommitMessage(ctx context.Context, msgs []prompt.Message, onText func(text string)) (*Result, error)
}
