package embedding

import (
	"context"
	"fmt"
	"strings"

	"document-assistant/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates a langchaingo embedder for the configured backend.
func NewEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedding client: %w", err)
		}
		return embeddings.NewEmbedder(llm)

	case config.ProviderOpenAI, "":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedding client: %w", err)
		}
		return embeddings.NewEmbedder(llm)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

// EmbedChunks embeds each chunk text in order. Empty input yields no vectors.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}
	return vectors, nil
}
