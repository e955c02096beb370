package llms

import (
	"context"
	"fmt"

	"docqa/internal/config"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// NewClient is a factory that creates an answer-generating client for
// the configured provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (interfaces.LLM, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model is required", schema.ErrConfiguration)
	}
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg)
	case "openai", "deepseek":
		return NewOpenAI(cfg)
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider: %s", schema.ErrConfiguration, cfg.Provider)
	}
}
