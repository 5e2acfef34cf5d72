package preferences

import (
	"context"

	"github.com/kailas-cloud/aptsearch/internal/domain"
)

// Chat completes a conversation and returns the model's JSON reply.
type Chat interface {
	CompleteJSON(ctx context.Context, system string, messages []domain.ChatMessage) (string, error)
}
