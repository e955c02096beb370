package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docqa/internal/rag/schema"
)

func chunkWithVec(docID string, index int, vec []float32) schema.Chunk {
	return schema.Chunk{
		ID:         fmt.Sprintf("%s:%04d", docID, index),
		DocumentID: docID,
		Index:      index,
		Text:       fmt.Sprintf("chunk %d of %s", index, docID),
		Embedding:  vec,
	}
}

func TestMemoryIndex_QueryOrdersByScore(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	err := idx.Upsert(ctx, []schema.Chunk{
		chunkWithVec("doc-a", 0, []float32{1, 0, 0}),
		chunkWithVec("doc-a", 1, []float32{0.6, 0.8, 0}),
		chunkWithVec("doc-a", 2, []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0, 0}, 3, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query() returned %d chunks, want 3", len(got))
	}
	wantOrder := []string{"doc-a:0000", "doc-a:0001", "doc-a:0002"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("result %d = %s, want %s", i, got[i].ID, want)
		}
	}
	if got[0].Score < 0.999 {
		t.Errorf("exact match score = %f, want ~1", got[0].Score)
	}
}

func TestMemoryIndex_TiesBreakByChunkID(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	// Identical vectors produce identical scores.
	vec := []float32{0, 1, 0}
	err := idx.Upsert(ctx, []schema.Chunk{
		chunkWithVec("doc-b", 2, vec),
		chunkWithVec("doc-b", 0, vec),
		chunkWithVec("doc-b", 1, vec),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := idx.Query(ctx, vec, 3, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	for i, want := range []string{"doc-b:0000", "doc-b:0001", "doc-b:0002"} {
		if got[i].ID != want {
			t.Errorf("result %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestMemoryIndex_DocumentFilter(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	vec := []float32{1, 0}
	err := idx.Upsert(ctx, []schema.Chunk{
		chunkWithVec("doc-a", 0, vec),
		chunkWithVec("doc-b", 0, vec),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := idx.Query(ctx, vec, 10, "doc-b")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "doc-b" {
		t.Errorf("filtered query returned %v, want only doc-b chunks", got)
	}
}

func TestMemoryIndex_TopKLimit(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := idx.Upsert(ctx, []schema.Chunk{chunkWithVec("doc-a", i, []float32{1, float32(i) / 100})}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 4, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 4 {
		t.Errorf("Query() returned %d chunks, want 4", len(got))
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex(3)
	ctx := context.Background()

	err := idx.Upsert(ctx, []schema.Chunk{chunkWithVec("doc-a", 0, []float32{1, 0})})
	if !errors.Is(err, schema.ErrDimensionMismatch) {
		t.Errorf("Upsert with wrong dimension: got %v, want ErrDimensionMismatch", err)
	}

	if err := idx.Upsert(ctx, []schema.Chunk{chunkWithVec("doc-a", 0, []float32{1, 0, 0})}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := idx.Query(ctx, []float32{1, 0}, 1, ""); !errors.Is(err, schema.ErrDimensionMismatch) {
		t.Errorf("Query with wrong dimension: got %v, want ErrDimensionMismatch", err)
	}
}

func TestMemoryIndex_UpsertReplacesByID(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	first := chunkWithVec("doc-a", 0, []float32{1, 0})
	if err := idx.Upsert(ctx, []schema.Chunk{first}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second := first
	second.Text = "replaced"
	if err := idx.Upsert(ctx, []schema.Chunk{second}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if idx.Len() != 1 {
		t.Fatalf("Len() = %d after replacing upsert, want 1", idx.Len())
	}
	got, err := idx.Query(ctx, []float32{1, 0}, 1, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got[0].Text != "replaced" {
		t.Errorf("chunk text = %q, want %q", got[0].Text, "replaced")
	}
}

func TestMemoryIndex_DeleteByDocument(t *testing.T) {
	idx := NewMemoryIndex(0)
	ctx := context.Background()

	vec := []float32{1, 0}
	err := idx.Upsert(ctx, []schema.Chunk{
		chunkWithVec("doc-a", 0, vec),
		chunkWithVec("doc-a", 1, vec),
		chunkWithVec("doc-b", 0, vec),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := idx.DeleteByDocument(ctx, "doc-a"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	got, err := idx.Query(ctx, vec, 10, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "doc-b" {
		t.Errorf("after delete, got %v, want only doc-b chunks", got)
	}
}

func TestMemoryIndex_EmptyIndexQuery(t *testing.T) {
	idx := NewMemoryIndex(0)

	got, err := idx.Query(context.Background(), []float32{1, 0}, 5, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty index returned %d chunks, want 0", len(got))
	}
}
