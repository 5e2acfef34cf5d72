package domain

import "context"

// KeyPrefix namespaces every key this service writes to Redis.
const KeyPrefix = "aptsearch:"

// Embedder is the text vectorization contract shared by the ranker and its decorators.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector and token usage through the decorator chain.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
