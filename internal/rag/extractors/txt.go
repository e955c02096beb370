package extractors

import (
	"context"
	"fmt"
	"unicode/utf8"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// TxtExtractor handles plain text documents.
type TxtExtractor struct{}

// NewTxtExtractor creates a new TxtExtractor.
func NewTxtExtractor() *TxtExtractor {
	return &TxtExtractor{}
}

// Extract validates the bytes as UTF-8 and normalizes whitespace.
func (e *TxtExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text content is not valid UTF-8", schema.ErrExtraction)
	}
	return normalize(string(data)), nil
}

var _ interfaces.Extractor = (*TxtExtractor)(nil)
