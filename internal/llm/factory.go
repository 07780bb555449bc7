package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/gemini-relay/internal/config"
)

// NewClient builds the completion client selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.Config) (CompletionClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "", cfg.Generation)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		client, err := NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
}
