package embeddings

import (
	"context"
	"time"

	"docqa/internal/rag/interfaces"
	"docqa/pkg/util"
)

// Cached memoizes embeddings by text. Embedding is deterministic, so a
// cache hit is always safe; repeated queries and re-ingested content
// skip the provider round trip.
type Cached struct {
	inner interfaces.EmbeddingModel
	cache *util.LRUCache[string, []float32]
}

// NewCached wraps the model with an LRU cache of the given capacity.
// ttl zero keeps entries until evicted.
func NewCached(inner interfaces.EmbeddingModel, capacity int, ttl time.Duration) (*Cached, error) {
	cache, err := util.NewLRU[string, []float32](capacity, ttl)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed serves cached vectors where possible and embeds only the
// misses, in one provider batch.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missIdx[j]] = vec
		c.cache.Put(missTexts[j], vec)
	}
	return out, nil
}

var _ interfaces.EmbeddingModel = (*Cached)(nil)
