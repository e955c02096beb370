package extractors

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// PDFExtractor extracts plain text from PDF bytes.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page and concatenates the page texts. A PDF from
// which no page yields text is treated as unparseable.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrExtraction, err)
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single bad page does not fail the document.
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text could be extracted from PDF", schema.ErrExtraction)
	}
	return normalize(strings.Join(parts, "\n\n")), nil
}

var _ interfaces.Extractor = (*PDFExtractor)(nil)
