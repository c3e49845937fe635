package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"flowAgent/internal/prompt"
	"flowAgent/internal/sanitizer"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient реализует prompt.Refiner через Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     string
	logger    *zap.Logger
	sanitizer *sanitizer.DataSanitizer
}

func NewGeminiClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("не задан GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{client: client, model: model, logger: logger, sanitizer: sanitizer.New()}, nil
}

func (c *GeminiClient) Refine(ctx context.Context, kind prompt.Kind, draft string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt(kind, c.sanitizer.SanitizePrompt(draft))), config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	c.logger.Debug("Промпт уточнен", zap.String("kind", string(kind)), zap.String("model", c.model))
	return cleanReply(resp.Text())
}
