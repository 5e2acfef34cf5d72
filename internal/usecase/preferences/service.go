// Package preferences turns a free-text apartment request into search filters.
package preferences

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/logger"
)

// Service extracts preferences with a chat model.
type Service struct {
	chat Chat
}

// New creates a preferences service.
func New(chat Chat) *Service {
	return &Service{chat: chat}
}

// Extract sends the conversation so far plus the new query to the model and parses
// its reply. Friendly area names are expanded to neighborhood codes.
// A reply that is not the expected JSON object fails with domain.ErrCollaborator.
func (s *Service) Extract(ctx context.Context, query string, history []domain.ChatMessage) (Preferences, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Preferences{}, fmt.Errorf("query is required: %w", domain.ErrInvalidFilters)
	}

	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: query})

	raw, err := s.chat.CompleteJSON(ctx, systemPrompt, messages)
	if err != nil {
		return Preferences{}, fmt.Errorf("extract preferences: %w", err)
	}

	p, err := parseReply(raw)
	if err != nil {
		logger.FromContext(ctx).Warn("Malformed preferences reply",
			zap.Int("reply_len", len(raw)),
			zap.Error(err),
		)
		return Preferences{}, fmt.Errorf("extract preferences: %w: %w", domain.ErrCollaborator, err)
	}

	return p, nil
}
