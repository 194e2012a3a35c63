package openaillm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"news-orchestrator/internal/domain"
	"news-orchestrator/internal/ratelimit"
)

// Client wraps the OpenAI chat completion API behind domain.LLMClient.
// Every call is rate limited through the shared service manager and
// forced into JSON mode so downstream parsing can rely on the shape.
type Client struct {
	api     *openai.Client
	model   string
	limiter *ratelimit.Manager
	logger  *slog.Logger
}

func NewClient(apiKey, model string, timeoutSeconds int, limiter *ratelimit.Manager, logger *slog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if timeoutSeconds > 0 {
		cfg.HTTPClient.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		limiter: limiter,
		logger:  logger,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// An open circuit rejects before any limiter token is spent.
	breaker := c.limiter.Breaker("openai")
	if err := breaker.Allow(); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx, "openai", 1); err != nil {
		return "", fmt.Errorf("failed to acquire openai slot: %w", err)
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		breaker.RecordFailure()
		c.logger.Error("openai_completion_failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	breaker.RecordSuccess()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	c.logger.Debug("openai_completion_done",
		slog.String("model", c.model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)),
	)

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Model() string {
	return c.model
}

var _ domain.LLMClient = (*Client)(nil)
