package extractors

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// MarkdownExtractor converts Markdown documents to plain text by
// stripping formatting syntax while keeping the textual content.
type MarkdownExtractor struct{}

// NewMarkdownExtractor creates a new MarkdownExtractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{}
}

var (
	mdCodeFence  = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n?(.*?)```")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdEmphasis   = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	mdInline     = regexp.MustCompile("`([^`]*)`")
	mdBlockquote = regexp.MustCompile(`(?m)^>[ \t]?`)
	mdListMarker = regexp.MustCompile(`(?m)^[ \t]*([-*+]|\d+\.)[ \t]+`)
	mdHRule      = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
)

// Extract strips Markdown syntax and normalizes the remaining text.
func (e *MarkdownExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: markdown content is not valid UTF-8", schema.ErrExtraction)
	}

	text := string(data)
	text = mdCodeFence.ReplaceAllString(text, "$1")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdEmphasis.ReplaceAllString(text, "$2")
	text = mdInline.ReplaceAllString(text, "$1")
	text = mdBlockquote.ReplaceAllString(text, "")
	text = mdListMarker.ReplaceAllString(text, "")
	text = mdHRule.ReplaceAllString(text, "")

	return normalize(text), nil
}

var _ interfaces.Extractor = (*MarkdownExtractor)(nil)
