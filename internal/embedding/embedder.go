// Package embedding generates vector representations of code chunks for the
// vector store (C2).
package embedding

import (
	"context"
	"fmt"

	"github.com/codegraph-labs/codegraph/internal/config"
)

// Embedder is the interface for embedding providers.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, inputType string) ([][]float32, error)
	ModelID() string
}

// NewEmbedder builds the configured Bedrock embedding client.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	client, err := NewClient(cfg.Bedrock)
	if err != nil {
		return nil, fmt.Errorf("bedrock client: %w", err)
	}
	return client, nil
}
