package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"document-assistant/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s stubEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return s.vectors, s.err
}

func (s stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, s.err
}

func TestEmbedChunks(t *testing.T) {
	vectors, err := EmbedChunks(context.Background(), stubEmbedder{}, nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)

	_, err = EmbedChunks(context.Background(), stubEmbedder{vectors: [][]float32{{1}}}, []string{"a", "b"})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = EmbedChunks(context.Background(), stubEmbedder{err: boom}, []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestNewEmbedder_OpenAICompatible(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-embed",
			"usage":  map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	defer server.Close()

	embedder, err := NewEmbedder(config.EmbeddingConfig{
		Provider: config.ProviderOpenAI,
		BaseURL:  server.URL,
		Key:      "test-key",
		Model:    "test-embed",
	})
	require.NoError(t, err)

	vectors, err := EmbedChunks(context.Background(), embedder, []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1}, vectors[1])
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(config.EmbeddingConfig{Provider: "gemini"})
	assert.Error(t, err)
}
