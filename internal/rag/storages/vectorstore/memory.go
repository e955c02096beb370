package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// MemoryIndex is a brute-force in-memory vector index. It keeps every
// chunk in a map and scans all of them on each query, which is exact
// and plenty fast for small corpora, tests and single-node setups
// without external infrastructure.
type MemoryIndex struct {
	mu     sync.RWMutex
	dim    int
	chunks map[string]schema.Chunk
}

// NewMemoryIndex creates an empty index. dimension may be zero, in
// which case it is pinned from the first vector stored.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dim:    dimension,
		chunks: make(map[string]schema.Chunk),
	}
}

// Upsert stores the chunks, replacing any existing entry with the same
// ID. All vectors must share one dimension.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chunk := range chunks {
		if err := m.checkDim(len(chunk.Embedding)); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
	}
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

// Query scans all stored chunks and returns the topK most similar to
// the given unit vector, ordered by descending score with ties broken
// by ascending chunk ID. documentID narrows the scan to one document.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]schema.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.chunks) == 0 {
		return nil, nil
	}
	if err := m.checkDim(len(vector)); err != nil {
		return nil, err
	}

	scored := make([]schema.ScoredChunk, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		if documentID != "" && chunk.DocumentID != documentID {
			continue
		}
		scored = append(scored, schema.ScoredChunk{
			Chunk: chunk,
			Score: dot(vector, chunk.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// DeleteByDocument removes every chunk belonging to the document.
func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

// Len reports the number of stored chunks.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// checkDim pins the index dimension on first use and rejects vectors
// of any other dimension. Callers must hold the lock.
func (m *MemoryIndex) checkDim(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty vector", schema.ErrDimensionMismatch)
	}
	if m.dim == 0 {
		m.dim = n
		return nil
	}
	if n != m.dim {
		return fmt.Errorf("%w: got dimension %d, index holds %d", schema.ErrDimensionMismatch, n, m.dim)
	}
	return nil
}

// dot computes the inner product, which equals cosine similarity for
// unit-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ interfaces.VectorIndex = (*MemoryIndex)(nil)
