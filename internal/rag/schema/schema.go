package schema

import "time"

// Format tags accepted by the ingestion pipeline. Anything else is
// rejected with ErrUnsupportedFormat before extraction starts.
const (
	FormatPDF      = "pdf"
	FormatTxt      = "txt"
	FormatMarkdown = "md"
	// FormatMarkdownLong is an alias for FormatMarkdown kept because
	// uploads commonly arrive with a .markdown extension.
	FormatMarkdownLong = "markdown"
)

// SupportedFormat reports whether the given format tag is one the
// pipeline knows how to extract.
func SupportedFormat(format string) bool {
	switch format {
	case FormatPDF, FormatTxt, FormatMarkdown, FormatMarkdownLong:
		return true
	}
	return false
}

// Document describes one ingested file. It is created only after
// extraction, chunking and embedding all succeeded, and is immutable
// afterwards; deleting it removes its chunks with it.
type Document struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Filename   string    `json:"filename" gorm:"size:255;not null"`
	Format     string    `json:"format" gorm:"size:16;not null"`
	SizeBytes  int64     `json:"size_bytes" gorm:"not null"`
	ChunkCount int       `json:"chunk_count" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a bounded contiguous segment of a document's normalized
// text. Offsets point back into that text: ByteStart/ByteEnd are byte
// positions, CharStart/CharEnd count runes. Consecutive chunks overlap;
// the text at [prev.End, End) is the chunk's new content, so stripping
// each chunk's overlap prefix and concatenating in index order yields
// the normalized source text exactly.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	ByteStart  int       `json:"byte_start"`
	ByteEnd    int       `json:"byte_end"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk pairs a retrieved chunk with its cosine similarity to the
// query. Scores lie in [-1, 1]; results are ordered by descending score
// with ties broken by ascending chunk ID.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// Source is the citation attached to a generated answer.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float32 `json:"score"`
	Preview    string  `json:"preview"`
}

// Answer is the result of a question: the generated (or fallback) text
// plus the chunks it was grounded on. Sources is empty when no chunk
// cleared the similarity threshold.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}
