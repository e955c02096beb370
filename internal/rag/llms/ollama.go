package llms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"

	"docqa/internal/config"
	"docqa/internal/rag/interfaces"
)

// Ollama generates answers through a local Ollama server.
type Ollama struct {
	client      *olla.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOllama creates a client for the Ollama server at cfg.BaseURL,
// defaulting to the standard local address.
func NewOllama(cfg config.LLMConfig) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{Timeout: 120 * time.Second}

	return &Ollama{
		client:      olla.NewClient(parsedURL, hc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate runs a non-streaming completion and collects the response
// text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	options := map[string]any{}
	if o.temperature > 0 {
		options["temperature"] = o.temperature
	}
	if o.maxTokens > 0 {
		options["num_predict"] = o.maxTokens
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return sb.String(), nil
}

var _ interfaces.LLM = (*Ollama)(nil)
