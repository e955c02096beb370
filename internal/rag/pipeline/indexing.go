package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/rag/extractors"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// IndexingPipeline orchestrates extraction, splitting, embedding and
// storage of uploaded documents. Ingestion is atomic: a failure at any
// stage rolls back everything already written for the document, so a
// document is either fully queryable or absent.
type IndexingPipeline struct {
	splitter  interfaces.Splitter
	embedder  interfaces.EmbeddingModel
	index     interfaces.VectorIndex
	documents interfaces.DocumentStore
	log       *logger.Logger
}

// NewIndexingPipeline creates an IndexingPipeline.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	index interfaces.VectorIndex,
	documents interfaces.DocumentStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		documents: documents,
		log:       log,
	}
}

// Run ingests one document: extract text for the declared format,
// split it, embed the chunks in one batch, then persist chunk vectors
// and the document record. The document record is written last and
// everything is rolled back if any late step fails.
func (p *IndexingPipeline) Run(ctx context.Context, docID, filename, format string, data []byte) (*schema.Document, error) {
	log := p.log.WithField("document_id", docID).WithField("filename", filename)
	log.Info("starting ingestion")

	extractor, err := extractors.ForFormat(format)
	if err != nil {
		return nil, err
	}
	text, err := extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	chunks, err := p.splitter.Split(ctx, docID, text)
	if err != nil {
		return nil, err
	}
	log.WithField("chunks", len(chunks)).Info("split document")

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	doc := &schema.Document{
		ID:         docID,
		Filename:   filename,
		Format:     format,
		SizeBytes:  int64(len(data)),
		ChunkCount: len(chunks),
		CreatedAt:  time.Now().UTC(),
	}

	// Vector index and document record are written concurrently; a
	// failure in either triggers a rollback of both so no partial
	// state survives.
	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return p.index.Upsert(gCtx, chunks)
	})
	eg.Go(func() error {
		return p.documents.CreateDocument(gCtx, doc)
	})
	if err := eg.Wait(); err != nil {
		p.rollback(docID, log)
		return nil, err
	}

	log.Info("ingestion finished")
	return doc, nil
}

// rollback removes whatever a failed ingestion managed to persist. It
// uses a fresh context so cleanup still runs when the request context
// is already canceled.
func (p *IndexingPipeline) rollback(docID string, log *logger.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.index.DeleteByDocument(cleanupCtx, docID); err != nil {
		log.WithError(err).Error("rollback: failed to delete chunks from vector index")
	}
	if err := p.documents.DeleteDocument(cleanupCtx, docID); err != nil && !errors.Is(err, schema.ErrDocumentNotFound) {
		log.WithError(err).Error("rollback: failed to delete document record")
	}
}
