package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/gemini-relay/internal/config"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	gemini, err := NewClient(ctx, config.Config{Provider: config.ProviderGemini, GeminiAPIKey: "key", GeminiModel: "gemini-test", Generation: testGeneration})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, gemini)

	openai, err := NewClient(ctx, config.Config{Provider: config.ProviderOpenAI, OpenAIAPIKey: "key", OpenAIModel: "gpt-test", Generation: testGeneration})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, openai)

	_, err = NewClient(ctx, config.Config{Provider: "claude"})
	assert.Error(t, err)
}
