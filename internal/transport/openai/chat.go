package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
)

// Chat sends conversations to a chat-completion model and expects a JSON object back.
type Chat struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewChat creates a chat-completion client.
func NewChat(cfg *Config, temperature float32) *Chat {
	return &Chat{
		client:      newClient(cfg),
		model:       cfg.Model,
		temperature: temperature,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// CompleteJSON prepends the system prompt, sends the conversation, and returns the raw
// content of the first choice.
func (c *Chat) CompleteJSON(ctx context.Context, system string, messages []domain.ChatMessage) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)+1),
	}
	if supportsJSONMode(c.model) {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.PreferencesRequestsTotal.WithLabelValues("error").Inc()
		return "", parseAPIError("chat", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.PreferencesRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("empty chat response: %w", domain.ErrCollaborator)
	}

	metrics.PreferencesRequestsTotal.WithLabelValues("success").Inc()
	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// supportsJSONMode reports whether the model accepts response_format=json_object.
// The base gpt-4 model rejects it; the prompt alone asks for JSON there.
func supportsJSONMode(model string) bool {
	return model != openai.GPT4 && model != openai.GPT40613 && model != openai.GPT40314
}
