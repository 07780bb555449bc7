package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/RichardoC/gemini-relay/internal/config"
	"github.com/RichardoC/gemini-relay/internal/models"
)

var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	client *genai.Client
	model  string
	gen    config.Generation
}

var _ CompletionClient = (*GeminiClient)(nil)

// NewGeminiClient creates a client for model. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, gen config.Generation) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model, gen: gen}, nil
}

func (c *GeminiClient) generateConfig(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.gen.Temperature),
		TopP:            genai.Ptr(c.gen.TopP),
		TopK:            genai.Ptr(float32(c.gen.TopK)),
		MaxOutputTokens: int32(c.gen.MaxOutputTokens),
		SafetySettings:  geminiSafetySettings,
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return cfg
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		switch turn.Role {
		case models.RoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleUser))
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleModel))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.generateConfig(req.SystemPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt block reason %s", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", ErrContentBlocked, resp.Candidates[0].FinishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty gemini response", ErrUpstreamRejected)
	}
	return text, nil
}
