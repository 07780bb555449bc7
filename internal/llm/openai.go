package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/RichardoC/gemini-relay/internal/config"
	"github.com/RichardoC/gemini-relay/internal/models"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	llm     llms.Model
	options []llms.CallOption
}

var _ CompletionClient = (*OpenAIClient)(nil)

func NewOpenAIClient(baseURL, token, model string, gen config.Generation) (*OpenAIClient, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &OpenAIClient{
		llm: llm,
		options: []llms.CallOption{
			llms.WithTemperature(float64(gen.Temperature)),
			llms.WithTopP(float64(gen.TopP)),
			llms.WithTopK(gen.TopK),
			llms.WithMaxTokens(gen.MaxOutputTokens),
		},
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]llms.MessageContent, 0, len(req.Turns)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, turn.Text))
		case models.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, turn.Text))
		}
	}

	resp, err := c.llm.GenerateContent(ctx, messages, c.options...)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUpstreamRejected)
	}

	choice := resp.Choices[0]
	if choice.StopReason == "content_filter" {
		return "", fmt.Errorf("%w: content filter", ErrContentBlocked)
	}
	text := strings.TrimSpace(choice.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUpstreamRejected)
	}
	return text, nil
}
