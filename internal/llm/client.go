package llm

import (
	"context"

	"github.com/RichardoC/gemini-relay/internal/models"
)

// Request is everything a completion API needs for one reply.
type Request struct {
	SystemPrompt string
	Turns        []models.Turn
}

// CompletionClient turns a conversation into the next assistant turn.
// Implementations make exactly one upstream call per Complete.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}
