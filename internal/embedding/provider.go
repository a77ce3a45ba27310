// Package embedding provides embedding generation with caching and batching.
package embedding

import "context"

// Provider generates embeddings through an external service. A provider call
// covers a whole batch and may fail as a unit; degradation policy lives in the
// Service, not here.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
