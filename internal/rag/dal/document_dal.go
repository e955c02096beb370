package dal

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// DocumentDAL provides data access methods for ingested documents.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a DocumentDAL and ensures the documents table
// exists.
func NewDocumentDAL(db *gorm.DB) (*DocumentDAL, error) {
	if err := db.AutoMigrate(&schema.Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &DocumentDAL{db: db}, nil
}

// CreateDocument records a successfully ingested document.
func (dal *DocumentDAL) CreateDocument(ctx context.Context, doc *schema.Document) error {
	if err := dal.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document record: %w", err)
	}
	return nil
}

// GetDocument retrieves one document by ID.
func (dal *DocumentDAL) GetDocument(ctx context.Context, id string) (*schema.Document, error) {
	var doc schema.Document
	err := dal.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (dal *DocumentDAL) ListDocuments(ctx context.Context) ([]*schema.Document, error) {
	var docs []*schema.Document
	err := dal.db.WithContext(ctx).Order("created_at DESC").Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the document record. Chunk cleanup in the
// vector index is the caller's responsibility.
func (dal *DocumentDAL) DeleteDocument(ctx context.Context, id string) error {
	result := dal.db.WithContext(ctx).Delete(&schema.Document{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete document %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	return nil
}

var _ interfaces.DocumentStore = (*DocumentDAL)(nil)
