package schema

import "errors"

// Sentinel errors for the pipeline. Callers match them with errors.Is;
// wrapping sites attach the underlying cause with fmt.Errorf and %w.
var (
	// ErrUnsupportedFormat is returned when a declared format tag is
	// outside the pdf/txt/md/markdown whitelist.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction is returned when a document of a supported format
	// cannot be parsed (e.g. a corrupt PDF).
	ErrExtraction = errors.New("text extraction failed")

	// ErrConfiguration is returned for invalid chunking parameters,
	// raised before any text is processed.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbedding is returned when the embedding model is unavailable
	// or produced no output. During ingestion it aborts the whole
	// document; nothing partial is persisted.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when a vector's dimension does
	// not match the dimension the index was initialized with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGeneration is returned when the text generator fails. No
	// retries happen here; retry policy belongs to the caller.
	ErrGeneration = errors.New("answer generation failed")

	// ErrDocumentNotFound is returned by document lookups for unknown IDs.
	ErrDocumentNotFound = errors.New("document not found")
)
