package extractors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// ForFormat returns the extractor for a declared format tag, or
// ErrUnsupportedFormat for anything outside the whitelist.
func ForFormat(format string) (interfaces.Extractor, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case schema.FormatPDF:
		return NewPDFExtractor(), nil
	case schema.FormatTxt:
		return NewTxtExtractor(), nil
	case schema.FormatMarkdown, schema.FormatMarkdownLong:
		return NewMarkdownExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnsupportedFormat, format)
	}
}

// DetectFormat sniffs a format tag from raw content when the caller has
// no usable filename extension. Only returns tags from the whitelist.
func DetectFormat(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		return schema.FormatPDF, nil
	case mtype.Is("text/markdown"):
		return schema.FormatMarkdown, nil
	case strings.HasPrefix(mtype.String(), "text/"):
		return schema.FormatTxt, nil
	default:
		return "", fmt.Errorf("%w: detected %s", schema.ErrUnsupportedFormat, mtype.String())
	}
}

var (
	crlfPattern       = regexp.MustCompile(`\r\n?`)
	whitespacePattern = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinePattern  = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// normalize collapses repeated whitespace and unifies line endings so
// that chunk offsets are stable regardless of the source format's
// layout quirks.
func normalize(text string) string {
	text = crlfPattern.ReplaceAllString(text, "\n")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = blankLinePattern.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, " \n", "\n")
	text = strings.ReplaceAll(text, "\n ", "\n")
	return strings.TrimSpace(text)
}
