package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// FallbackAnswer is returned when retrieval found nothing above the
// similarity threshold. The generator is not called in that case.
const FallbackAnswer = "I apologize, but I couldn't find relevant information in the uploaded documents " +
	"to answer your question. The documents may not contain information about this topic, " +
	"or the question may be outside the scope of the uploaded content."

// previewChars bounds the content preview attached to each source.
const previewChars = 200

// QAPipeline turns retrieved chunks into a grounded answer. Context is
// packed in retrieval-rank order under a character budget; chunks that
// do not fit are dropped, never truncated mid-chunk, except that the
// top-ranked chunk is always included.
type QAPipeline struct {
	llm             interfaces.LLM
	maxContextChars int
	log             *logger.Logger
}

// NewQAPipeline creates a QAPipeline with the given context budget.
func NewQAPipeline(llm interfaces.LLM, maxContextChars int, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm:             llm,
		maxContextChars: maxContextChars,
		log:             log,
	}
}

// Run builds a grounded prompt from the chunks and asks the generator.
// With no chunks it short-circuits to the fixed fallback answer and an
// empty source list.
func (p *QAPipeline) Run(ctx context.Context, query string, chunks []schema.ScoredChunk) (*schema.Answer, error) {
	if len(chunks) == 0 {
		p.log.Info("no chunks above threshold, returning fallback answer")
		return &schema.Answer{Text: FallbackAnswer, Sources: []schema.Source{}}, nil
	}

	included := p.fitToBudget(chunks)
	prompt := buildPrompt(query, included)

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrGeneration, err)
	}

	sources := make([]schema.Source, len(included))
	for i, chunk := range included {
		sources[i] = schema.Source{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Score:      chunk.Score,
			Preview:    preview(chunk.Text),
		}
	}
	return &schema.Answer{Text: strings.TrimSpace(text), Sources: sources}, nil
}

// fitToBudget keeps the highest-ranked chunks whose texts fit within
// the context budget. The first chunk always survives so the generator
// never runs without context.
func (p *QAPipeline) fitToBudget(chunks []schema.ScoredChunk) []schema.ScoredChunk {
	var included []schema.ScoredChunk
	used := 0
	for _, chunk := range chunks {
		n := utf8.RuneCountInString(chunk.Text)
		if used+n > p.maxContextChars && len(included) > 0 {
			break
		}
		included = append(included, chunk)
		used += n
	}
	return included
}

// buildPrompt lays out instructions, numbered context blocks and the
// question.
func buildPrompt(query string, chunks []schema.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant that answers questions based on the provided context.\n")
	sb.WriteString("Your task is to provide accurate, relevant answers grounded in the given context.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Answer the question using ONLY information from the provided context\n")
	sb.WriteString("2. If the context doesn't contain enough information to answer, say so clearly\n")
	sb.WriteString("3. Do not make up information or use external knowledge\n")
	sb.WriteString("4. Quote relevant parts of the context when appropriate\n")
	sb.WriteString("5. Be concise but complete in your answer\n\n")
	sb.WriteString("CONTEXT:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "[Context %d]\n%s\n\n", i+1, chunk.Text)
	}
	sb.WriteString("QUESTION:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nANSWER:")
	return sb.String()
}

// preview returns the first previewChars runes of text.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewChars])
}
