package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"docqa/internal/config"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// Provider is the raw client contract implemented per model vendor.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service wraps a Provider to enforce the embedding contract: every
// vector is L2-normalized to unit length (cosine similarity then
// reduces to a dot product) and all vectors share one dimension,
// pinned at construction or from the first call. The service is built
// once per process and is safe for concurrent use.
type Service struct {
	provider Provider

	mu  sync.Mutex
	dim int
}

// NewService wraps a provider. dimension may be zero, in which case it
// is pinned from the first embedding the provider returns.
func NewService(provider Provider, dimension int) *Service {
	return &Service{provider: provider, dim: dimension}
}

// NewModel constructs the provider selected by configuration and wraps
// it in a Service.
func NewModel(cfg config.EmbeddingConfig) (*Service, error) {
	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case "google":
		provider, err = NewGoogleModel(cfg.APIKey, cfg.Model)
	case "openai":
		provider, err = NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		provider, err = NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", schema.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewService(provider, cfg.Dimension), nil
}

// Dimension returns the pinned vector dimension, or zero if no vector
// has been produced yet.
func (s *Service) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// Embed maps a batch of texts to unit-length vectors. The whole batch
// is submitted to the provider in one call; a failure anywhere aborts
// the batch so callers never see partial results.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", schema.ErrEmbedding)
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", schema.ErrEmbedding, i)
		}
	}

	vectors, err := s.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			schema.ErrEmbedding, len(vectors), len(texts))
	}

	for i, vec := range vectors {
		if err := s.checkDimension(len(vec)); err != nil {
			return nil, err
		}
		normalized, err := normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: vector %d: %v", schema.ErrEmbedding, i, err)
		}
		vectors[i] = normalized
	}
	return vectors, nil
}

// EmbedOne embeds a single text, typically a query.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *Service) checkDimension(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: provider returned an empty vector", schema.ErrEmbedding)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = n
		return nil
	}
	if n != s.dim {
		return fmt.Errorf("%w: got %d, index dimension is %d", schema.ErrDimensionMismatch, n, s.dim)
	}
	return nil
}

// normalize scales the vector to unit length.
func normalize(vec []float32) ([]float32, error) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("cannot normalize a zero vector")
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

var _ interfaces.EmbeddingModel = (*Service)(nil)
