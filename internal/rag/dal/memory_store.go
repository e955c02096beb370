package dal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// MemoryDocumentStore keeps the document catalog in memory. It backs
// deployments that run with the in-memory vector index and no
// database.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]schema.Document
}

// NewMemoryDocumentStore creates an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]schema.Document)}
}

// CreateDocument records a document.
func (m *MemoryDocumentStore) CreateDocument(ctx context.Context, doc *schema.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

// GetDocument retrieves one document by ID.
func (m *MemoryDocumentStore) GetDocument(ctx context.Context, id string) (*schema.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (m *MemoryDocumentStore) ListDocuments(ctx context.Context) ([]*schema.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]*schema.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		doc := doc
		docs = append(docs, &doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// DeleteDocument removes the document record.
func (m *MemoryDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", schema.ErrDocumentNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

var _ interfaces.DocumentStore = (*MemoryDocumentStore)(nil)
