package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docqa/internal/config"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// Schema fields of the Milvus chunks collection.
const (
	fieldID         = "id"
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"
	fieldContent    = "content"
	fieldByteStart  = "byte_start"
	fieldByteEnd    = "byte_end"
	fieldCharStart  = "char_start"
	fieldCharEnd    = "char_end"
	fieldEmbedding  = "embedding"
)

// MilvusIndex stores chunk vectors in a Milvus collection. Vectors are
// unit length, so the inner-product metric gives cosine similarity
// directly.
type MilvusIndex struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dim        int
}

// NewMilvusIndex connects to Milvus and ensures the chunks collection
// exists, creating it with an IP-metric index when missing. dimension
// must match the embedding model.
func NewMilvusIndex(ctx context.Context, cfg config.MilvusConfig, dimension int, log *logger.Logger) (*MilvusIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: milvus backend requires an explicit embedding dimension", schema.ErrConfiguration)
	}

	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", cfg.Address, err)
	}

	idx := &MilvusIndex{
		log:        log,
		client:     c,
		collection: cfg.Collection,
		dim:        dimension,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the Milvus connection.
func (m *MilvusIndex) Close() error {
	return m.client.Close()
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", m.collection, err)
	}

	if !has {
		collSchema := entity.NewSchema().WithName(m.collection).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(36)).
			WithField(entity.NewField().WithName(fieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(fieldByteStart).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldByteEnd).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldCharStart).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldCharEnd).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dim)))

		if err := m.client.CreateCollection(ctx, collSchema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection %s: %w", m.collection, err)
		}
		index, err := entity.NewIndexIvfFlat(entity.IP, 128)
		if err != nil {
			return fmt.Errorf("build index definition: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.collection, fieldEmbedding, index, false); err != nil {
			return fmt.Errorf("create index on %s: %w", fieldEmbedding, err)
		}
		m.log.WithField("collection", m.collection).Info("created milvus collection")
	}

	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", m.collection, err)
	}
	return nil
}

// Upsert inserts the chunks as one batch of columns and flushes so
// they become searchable immediately.
func (m *MilvusIndex) Upsert(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	contents := make([]string, len(chunks))
	byteStarts := make([]int64, len(chunks))
	byteEnds := make([]int64, len(chunks))
	charStarts := make([]int64, len(chunks))
	charEnds := make([]int64, len(chunks))
	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) != m.dim {
			return fmt.Errorf("%w: chunk %s has dimension %d, collection holds %d",
				schema.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), m.dim)
		}
		ids[i] = chunk.ID
		docIDs[i] = chunk.DocumentID
		indexes[i] = int64(chunk.Index)
		contents[i] = chunk.Text
		byteStarts[i] = int64(chunk.ByteStart)
		byteEnds[i] = int64(chunk.ByteEnd)
		charStarts[i] = int64(chunk.CharStart)
		charEnds[i] = int64(chunk.CharEnd)
		embeddings[i] = chunk.Embedding
	}

	_, err := m.client.Upsert(ctx, m.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldDocumentID, docIDs),
		entity.NewColumnInt64(fieldChunkIndex, indexes),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnInt64(fieldByteStart, byteStarts),
		entity.NewColumnInt64(fieldByteEnd, byteEnds),
		entity.NewColumnInt64(fieldCharStart, charStarts),
		entity.NewColumnInt64(fieldCharEnd, charEnds),
		entity.NewColumnFloatVector(fieldEmbedding, m.dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("upsert %d chunks into milvus: %w", len(chunks), err)
	}
	if err := m.client.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("flush collection %s: %w", m.collection, err)
	}
	return nil
}

// Query performs an inner-product vector search, optionally narrowed
// to one document.
func (m *MilvusIndex) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]schema.ScoredChunk, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection holds %d",
			schema.ErrDimensionMismatch, len(vector), m.dim)
	}

	expr := ""
	if documentID != "" {
		expr = fmt.Sprintf(`%s == "%s"`, fieldDocumentID, documentID)
	}
	searchParams, err := entity.NewIndexIvfFlatSearchParam(10)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	outputFields := []string{
		fieldID, fieldDocumentID, fieldChunkIndex, fieldContent,
		fieldByteStart, fieldByteEnd, fieldCharStart, fieldCharEnd,
	}

	results, err := m.client.Search(
		ctx, m.collection, nil, expr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.IP, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", m.collection, err)
	}

	var scored []schema.ScoredChunk
	for _, res := range results {
		chunks, err := decodeResult(res)
		if err != nil {
			return nil, err
		}
		scored = append(scored, chunks...)
	}
	return scored, nil
}

// DeleteByDocument removes every chunk of the document from the
// collection.
func (m *MilvusIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, fieldDocumentID, documentID)
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", documentID, err)
	}
	return nil
}

// decodeResult converts one Milvus search result into scored chunks.
func decodeResult(res client.SearchResult) ([]schema.ScoredChunk, error) {
	varcharData := func(name string) []string {
		for _, field := range res.Fields {
			if field.Name() == name {
				if col, ok := field.(*entity.ColumnVarChar); ok {
					return col.Data()
				}
			}
		}
		return nil
	}
	int64Data := func(name string) []int64 {
		for _, field := range res.Fields {
			if field.Name() == name {
				if col, ok := field.(*entity.ColumnInt64); ok {
					return col.Data()
				}
			}
		}
		return nil
	}

	ids := varcharData(fieldID)
	if ids == nil {
		return nil, fmt.Errorf("search result is missing the %s field", fieldID)
	}
	docIDs := varcharData(fieldDocumentID)
	contents := varcharData(fieldContent)
	indexes := int64Data(fieldChunkIndex)
	byteStarts := int64Data(fieldByteStart)
	byteEnds := int64Data(fieldByteEnd)
	charStarts := int64Data(fieldCharStart)
	charEnds := int64Data(fieldCharEnd)

	scored := make([]schema.ScoredChunk, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		chunk := schema.Chunk{ID: ids[i]}
		if docIDs != nil {
			chunk.DocumentID = docIDs[i]
		}
		if contents != nil {
			chunk.Text = contents[i]
		}
		if indexes != nil {
			chunk.Index = int(indexes[i])
		}
		if byteStarts != nil {
			chunk.ByteStart = int(byteStarts[i])
		}
		if byteEnds != nil {
			chunk.ByteEnd = int(byteEnds[i])
		}
		if charStarts != nil {
			chunk.CharStart = int(charStarts[i])
		}
		if charEnds != nil {
			chunk.CharEnd = int(charEnds[i])
		}
		scored = append(scored, schema.ScoredChunk{Chunk: chunk, Score: res.Scores[i]})
	}
	return scored, nil
}

var _ interfaces.VectorIndex = (*MilvusIndex)(nil)
