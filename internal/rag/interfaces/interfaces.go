package interfaces

import (
	"context"

	"docqa/internal/rag/schema"
)

// Extractor converts a raw document of one declared format into
// normalized plain text. It is a pure function of its inputs.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Splitter cuts normalized text into overlapping, bounded-size chunks.
// Empty or whitespace-only input yields zero chunks, not an error.
type Splitter interface {
	Split(ctx context.Context, documentID, text string) ([]schema.Chunk, error)
}

// EmbeddingModel maps texts to fixed-dimension vectors. Embedding the
// same text must yield the same vector regardless of batch composition.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores chunk vectors and answers nearest-neighbor
// queries. Upsert of a document's chunks and cascade deletion are the
// two write paths; ingestion atomicity is enforced against this
// interface rather than coordinated across separate clients.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []schema.Chunk) error
	// Query returns up to topK chunks by descending cosine similarity
	// to the given unit vector. documentID narrows the search to one
	// document; empty means all documents.
	Query(ctx context.Context, vector []float32, topK int, documentID string) ([]schema.ScoredChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// DocumentStore keeps the catalog of ingested documents. Records
// exist only for fully ingested documents.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *schema.Document) error
	GetDocument(ctx context.Context, id string) (*schema.Document, error)
	ListDocuments(ctx context.Context) ([]*schema.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// LLM is a text generator: given a prompt, return text or fail.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
