package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"docqa/internal/rag/extractors"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/pipeline"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// ingestWorkers bounds how many documents of one batch are processed
// concurrently.
const ingestWorkers = 4

// DocQAService ties the ingestion, retrieval and answering pipelines
// together behind one API surface.
type DocQAService struct {
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	documents interfaces.DocumentStore
	index     interfaces.VectorIndex
	pool      *ants.Pool
	log       *logger.Logger
}

// NewDocQAService creates the service and its batch worker pool.
func NewDocQAService(
	indexing *pipeline.IndexingPipeline,
	retrieval *pipeline.RetrievalPipeline,
	qa *pipeline.QAPipeline,
	documents interfaces.DocumentStore,
	index interfaces.VectorIndex,
	log *logger.Logger,
) (*DocQAService, error) {
	pool, err := ants.NewPool(ingestWorkers)
	if err != nil {
		return nil, fmt.Errorf("create ingestion worker pool: %w", err)
	}
	return &DocQAService{
		indexing:  indexing,
		retrieval: retrieval,
		qa:        qa,
		documents: documents,
		index:     index,
		pool:      pool,
		log:       log,
	}, nil
}

// Close releases the worker pool.
func (s *DocQAService) Close() {
	s.pool.Release()
}

// Ingest processes one uploaded file end to end and returns the
// document record. The format comes from the filename extension, or
// from content sniffing when the name has none.
func (s *DocQAService) Ingest(ctx context.Context, filename string, data []byte) (*schema.Document, error) {
	format, err := resolveFormat(filename, data)
	if err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	return s.indexing.Run(ctx, docID, filename, format, data)
}

// Upload is one file of a batch ingestion request.
type Upload struct {
	Filename string
	Data     []byte
}

// IngestResult is the per-file outcome of a batch ingestion.
type IngestResult struct {
	Filename string
	Document *schema.Document
	Err      error
}

// IngestBatch ingests several files concurrently on the worker pool.
// Files fail independently; the result slice keeps the input order.
func (s *DocQAService) IngestBatch(ctx context.Context, uploads []Upload) []IngestResult {
	results := make([]IngestResult, len(uploads))
	var wg sync.WaitGroup

	for i, upload := range uploads {
		i, upload := i, upload
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			doc, err := s.Ingest(ctx, upload.Filename, upload.Data)
			results[i] = IngestResult{Filename: upload.Filename, Document: doc, Err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = IngestResult{Filename: upload.Filename, Err: fmt.Errorf("submit to worker pool: %w", err)}
		}
	}

	wg.Wait()
	return results
}

// Ask answers a question from the indexed corpus. topK zero uses the
// configured default; documentID narrows retrieval to one document and
// must name an existing document.
func (s *DocQAService) Ask(ctx context.Context, question string, topK int, documentID string) (*schema.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", schema.ErrConfiguration)
	}

	if documentID != "" {
		if _, err := s.documents.GetDocument(ctx, documentID); err != nil {
			return nil, err
		}
	}

	chunks, err := s.retrieval.Run(ctx, question, topK, documentID)
	if err != nil {
		return nil, err
	}
	return s.qa.Run(ctx, question, chunks)
}

// ListDocuments returns all ingested documents.
func (s *DocQAService) ListDocuments(ctx context.Context) ([]*schema.Document, error) {
	return s.documents.ListDocuments(ctx)
}

// GetDocument returns one document by ID.
func (s *DocQAService) GetDocument(ctx context.Context, id string) (*schema.Document, error) {
	return s.documents.GetDocument(ctx, id)
}

// DeleteDocument removes a document and all its chunks. The chunks go
// first so a partial failure never orphans vectors behind a deleted
// record.
func (s *DocQAService) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.documents.GetDocument(ctx, id); err != nil {
		return err
	}
	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", id, err)
	}
	return s.documents.DeleteDocument(ctx, id)
}

// Health reports whether the document store is reachable.
func (s *DocQAService) Health(ctx context.Context) error {
	if _, err := s.documents.ListDocuments(ctx); err != nil {
		return fmt.Errorf("document store unreachable: %w", err)
	}
	return nil
}

// resolveFormat derives the format tag from the filename extension,
// falling back to content sniffing for extensionless uploads.
func resolveFormat(filename string, data []byte) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return extractors.DetectFormat(data)
	}
	if !schema.SupportedFormat(ext) {
		return "", fmt.Errorf("%w: %q", schema.ErrUnsupportedFormat, ext)
	}
	return ext, nil
}
