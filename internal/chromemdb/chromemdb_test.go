package chromemdb

import (
	"context"
	"strings"
	"testing"

	"document-assistant/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto a small fixed vocabulary so similarity is predictable.
type keywordEmbedder struct {
	queries int
}

var vocabulary = []string{"tax", "audit", "holiday"}

func (k *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		if strings.Contains(text, word) {
			v[i] = 1
		}
	}
	v[len(vocabulary)] = 0.1
	return v
}

func (k *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	k.queries++
	return k.vector(text), nil
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{Content: "tax audit", Source: "a.txt", Position: 0},
		{Content: "audit plan", Source: "a.txt", Position: 1},
		{Content: "tax rules", Source: "b.txt", Position: 0},
		{Content: "holiday", Source: "b.txt", Position: 1},
	}
}

func TestRanker_KeepsDocumentOrder(t *testing.T) {
	embedder := &keywordEmbedder{}
	r := NewRanker(embedder)

	ranked, err := r.Rank(context.Background(), "tax", testChunks(), 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "tax audit", ranked[0].Content)
	assert.Equal(t, "tax rules", ranked[1].Content)
	assert.Equal(t, 1, embedder.queries)
}

func TestRanker_TopKCoversEverything(t *testing.T) {
	embedder := &keywordEmbedder{}
	r := NewRanker(embedder)

	ranked, err := r.Rank(context.Background(), "tax", testChunks(), 10)
	require.NoError(t, err)
	assert.Equal(t, testChunks(), ranked)
	assert.Zero(t, embedder.queries)

	ranked, err = r.Rank(context.Background(), "tax", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestVectorDBManager_SearchClampsResults(t *testing.T) {
	mgr, err := NewVectorDBManager("test")
	require.NoError(t, err)

	require.NoError(t, mgr.CreateDocs(context.Background(), []chromem.Document{
		{ID: "1", Content: "tax", Embedding: []float32{1, 0}},
		{ID: "2", Content: "audit", Embedding: []float32{0, 1}},
	}))

	results, err := mgr.SearchWithQueryOptions(context.Background(), chromem.QueryOptions{
		QueryEmbedding: []float32{1, 0},
		NResults:       5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)

	_, err = mgr.SearchWithQueryOptions(context.Background(), chromem.QueryOptions{NResults: 1})
	assert.Error(t, err)
}
