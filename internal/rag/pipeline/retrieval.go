package pipeline

import (
	"context"
	"fmt"
	"sort"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// Bounds for the per-query topK override.
const (
	minTopK = 1
	maxTopK = 20
)

// RetrievalPipeline embeds a query and finds the most similar stored
// chunks, dropping everything below the similarity threshold. An empty
// result is a normal outcome, not an error.
type RetrievalPipeline struct {
	embedder  interfaces.EmbeddingModel
	index     interfaces.VectorIndex
	topK      int
	threshold float32
	log       *logger.Logger
}

// NewRetrievalPipeline creates a RetrievalPipeline. defaultTopK and
// threshold come from configuration and apply when a query does not
// override them.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	index interfaces.VectorIndex,
	defaultTopK int,
	threshold float32,
	log *logger.Logger,
) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:  embedder,
		index:     index,
		topK:      defaultTopK,
		threshold: threshold,
		log:       log,
	}
}

// Run retrieves the chunks most similar to the query. topK zero means
// the configured default; out-of-range values are clamped. documentID
// narrows retrieval to one document, empty means the whole corpus.
// Results come back ordered by descending score with ties broken by
// ascending chunk ID.
func (p *RetrievalPipeline) Run(ctx context.Context, query string, topK int, documentID string) ([]schema.ScoredChunk, error) {
	if topK == 0 {
		topK = p.topK
	}
	if topK < minTopK {
		topK = minTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := p.index.Query(ctx, vectors[0], topK, documentID)
	if err != nil {
		return nil, err
	}

	results := candidates[:0]
	for _, candidate := range candidates {
		if candidate.Score >= p.threshold {
			results = append(results, candidate)
		}
	}

	// Backends differ in how they order equal scores, so the tie rule
	// is enforced here.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	p.log.WithField("results", len(results)).Debug("retrieval finished")
	return results, nil
}
