package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docqa/internal/rag/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: docqa
rag:
  vectorBackend: memory
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.RAG.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want default %d", cfg.RAG.ChunkSize, DefaultChunkSize)
	}
	if cfg.RAG.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("ChunkOverlap = %d, want default %d", cfg.RAG.ChunkOverlap, DefaultChunkOverlap)
	}
	if cfg.RAG.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want default %d", cfg.RAG.TopK, DefaultTopK)
	}
	if cfg.RAG.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %f, want default %f", cfg.RAG.SimilarityThreshold, DefaultSimilarityThreshold)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Server.MaxUploadSize != DefaultMaxUploadSize {
		t.Errorf("MaxUploadSize = %d, want default", cfg.Server.MaxUploadSize)
	}
}

func TestLoadConfig_RejectsOverlapNotBelowChunkSize(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunkSize: 100
  chunkOverlap: 100
`)
	_, err := LoadConfig(path)
	if !errors.Is(err, schema.ErrConfiguration) {
		t.Errorf("LoadConfig() error = %v, want ErrConfiguration", err)
	}
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
rag:
  vectorBackend: redis
`)
	_, err := LoadConfig(path)
	if !errors.Is(err, schema.ErrConfiguration) {
		t.Errorf("LoadConfig() error = %v, want ErrConfiguration", err)
	}
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "secret-key")
	path := writeConfig(t, `
rag:
  embedding:
    provider: google
    apiKey: ${DOCQA_TEST_KEY}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.RAG.Embedding.APIKey != "secret-key" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.RAG.Embedding.APIKey)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("LoadConfig() accepted a missing file")
	}
}
