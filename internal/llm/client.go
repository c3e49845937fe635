package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"flowAgent/internal/prompt"
	"flowAgent/internal/sanitizer"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient реализует prompt.Refiner через chat completions.
type OpenAIClient struct {
	client      chatCompleter
	model       string
	maxTokens   int
	logger      *zap.Logger
	sanitizer   *sanitizer.DataSanitizer
	rateLimiter *RateLimiter
}

func NewOpenAIClient(apiKey, model string, maxTokens, requestsPerMinute int, logger *zap.Logger) *OpenAIClient {
	return newOpenAIClient(openai.NewClient(apiKey), model, maxTokens, requestsPerMinute, logger)
}

func newOpenAIClient(api chatCompleter, model string, maxTokens, requestsPerMinute int, logger *zap.Logger) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		client:      api,
		model:       model,
		maxTokens:   maxTokens,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(requestsPerMinute),
	}
}

func (c *OpenAIClient) Refine(ctx context.Context, kind prompt.Kind, draft string) (string, error) {
	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt(kind, c.sanitizer.SanitizePrompt(draft)),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: пустой список choices")
	}

	c.logger.Debug("Промпт уточнен",
		zap.String("kind", string(kind)),
		zap.Int("tokens", resp.Usage.TotalTokens),
	)
	return cleanReply(resp.Choices[0].Message.Content)
}

// createChatCompletionWithRateLimit выполняет запрос с ожиданием rate limit
func (c *OpenAIClient) createChatCompletionWithRateLimit(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return c.client.CreateChatCompletion(ctx, req)
}
