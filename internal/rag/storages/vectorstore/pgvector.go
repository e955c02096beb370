package vectorstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// chunkRow is the Postgres representation of a chunk. The embedding
// column uses the pgvector extension so similarity search runs inside
// the database.
type chunkRow struct {
	ID         string          `gorm:"primaryKey;type:varchar(64)"`
	DocumentID string          `gorm:"type:varchar(36);not null;index"`
	ChunkIndex int             `gorm:"not null"`
	Content    string          `gorm:"type:text;not null"`
	ByteStart  int             `gorm:"not null"`
	ByteEnd    int             `gorm:"not null"`
	CharStart  int             `gorm:"not null"`
	CharEnd    int             `gorm:"not null"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
}

func (chunkRow) TableName() string { return "chunks" }

// scoredRow is the shape of a similarity query result.
type scoredRow struct {
	chunkRow
	Score float32
}

// PgvectorIndex stores chunk vectors in Postgres with the pgvector
// extension. Cosine distance queries on unit vectors give cosine
// similarity as 1 - distance.
type PgvectorIndex struct {
	db *gorm.DB
}

// NewPgvectorIndex prepares the chunks table and returns the index.
// dimension fixes the vector column width; it must match the embedding
// model.
func NewPgvectorIndex(db *gorm.DB, dimension int) (*PgvectorIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: pgvector backend requires an explicit embedding dimension", schema.ErrConfiguration)
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
		id varchar(64) PRIMARY KEY,
		document_id varchar(36) NOT NULL,
		chunk_index integer NOT NULL,
		content text NOT NULL,
		byte_start integer NOT NULL,
		byte_end integer NOT NULL,
		char_start integer NOT NULL,
		char_end integer NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dimension)
	if err := db.Exec(createTable).Error; err != nil {
		return nil, fmt.Errorf("create chunks table: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks (document_id)").Error; err != nil {
		return nil, fmt.Errorf("create document_id index: %w", err)
	}
	return &PgvectorIndex{db: db}, nil
}

// Upsert writes the chunks in one batch, replacing rows that share a
// chunk ID.
func (p *PgvectorIndex) Upsert(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]chunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = chunkRow{
			ID:         chunk.ID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			ByteStart:  chunk.ByteStart,
			ByteEnd:    chunk.ByteEnd,
			CharStart:  chunk.CharStart,
			CharEnd:    chunk.CharEnd,
			Embedding:  pgvector.NewVector(chunk.Embedding),
		}
	}

	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(rows), err)
	}
	return nil
}

// Query runs a cosine-distance nearest-neighbor search and converts
// distances back to similarity scores.
func (p *PgvectorIndex) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]schema.ScoredChunk, error) {
	queryVec := pgvector.NewVector(vector)

	sql := `SELECT id, document_id, chunk_index, content,
		byte_start, byte_end, char_start, char_end,
		1 - (embedding <=> ?) AS score
	FROM chunks`
	args := []any{queryVec}
	if documentID != "" {
		sql += " WHERE document_id = ?"
		args = append(args, documentID)
	}
	sql += " ORDER BY embedding <=> ?, id LIMIT ?"
	args = append(args, queryVec, topK)

	var rows []scoredRow
	if err := p.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	scored := make([]schema.ScoredChunk, len(rows))
	for i, row := range rows {
		scored[i] = schema.ScoredChunk{
			Chunk: schema.Chunk{
				ID:         row.ID,
				DocumentID: row.DocumentID,
				Index:      row.ChunkIndex,
				Text:       row.Content,
				ByteStart:  row.ByteStart,
				ByteEnd:    row.ByteEnd,
				CharStart:  row.CharStart,
				CharEnd:    row.CharEnd,
			},
			Score: row.Score,
		}
	}
	return scored, nil
}

// DeleteByDocument removes every chunk row of the document.
func (p *PgvectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	err := p.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&chunkRow{}).Error
	if err != nil {
		return fmt.Errorf("delete chunks of document %s: %w", documentID, err)
	}
	return nil
}

var _ interfaces.VectorIndex = (*PgvectorIndex)(nil)
