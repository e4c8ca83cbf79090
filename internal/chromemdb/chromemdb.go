package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"document-assistant/internal/embedding"
	"document-assistant/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

const collectionName = "session_chunks"

// VectorDBManager wraps a single in-memory chromem collection.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorDBManager creates an in-memory database holding one empty collection.
func NewVectorDBManager(name string) (*VectorDBManager, error) {
	db := chromem.NewDB()
	c, err := db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &VectorDBManager{db: db, collection: c}, nil
}

// CreateDocs adds documents that already carry their embeddings.
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// SearchWithQueryOptions runs a similarity search. NResults is clamped to the
// collection size.
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	if n := m.collection.Count(); opts.NResults > n || opts.NResults <= 0 {
		opts.NResults = n
	}
	if opts.NResults == 0 {
		return nil, nil
	}
	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Ranker picks the chunks most similar to a question. Every call builds a fresh
// collection, so nothing is cached between queries.
type Ranker struct {
	embedder embeddings.Embedder
}

func NewRanker(embedder embeddings.Embedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// Rank returns at most topK chunks by cosine similarity to query, in the order
// they appear in chunks. A non-positive topK keeps every chunk.
func (r *Ranker) Rank(ctx context.Context, query string, chunks []models.Chunk, topK int) ([]models.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK >= len(chunks) {
		return chunks, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedding.EmbedChunks(ctx, r.embedder, texts)
	if err != nil {
		return nil, err
	}
	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	mgr, err := NewVectorDBManager(collectionName)
	if err != nil {
		return nil, err
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   c.Content,
			Metadata:  map[string]string{"source": c.Source, "position": strconv.Itoa(c.Position)},
			Embedding: vectors[i],
		}
	}
	if err := mgr.CreateDocs(ctx, docs); err != nil {
		return nil, err
	}

	results, err := mgr.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       topK,
	})
	if err != nil {
		return nil, err
	}

	indexes := make([]int, 0, len(results))
	for _, res := range results {
		idx, err := strconv.Atoi(res.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", res.ID, err)
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	ranked := make([]models.Chunk, len(indexes))
	for i, idx := range indexes {
		ranked[i] = chunks[idx]
	}
	log.Debug().Int("candidates", len(chunks)).Int("selected", len(ranked)).Msg("Ranked chunks by similarity")
	return ranked, nil
}
