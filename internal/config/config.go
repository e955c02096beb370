package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"docqa/internal/rag/schema"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggerConfig controls the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// RateLimitConfig controls the request rate limiter middleware.
type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Algorithm string  `yaml:"algorithm"`
	Rate      float64 `yaml:"rate"`
	Burst     int     `yaml:"burst"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr          string          `yaml:"addr"`
	CORSOrigins   []string        `yaml:"corsOrigins"`
	MaxUploadSize int64           `yaml:"maxUploadSize"`
	RateLimit     RateLimitConfig `yaml:"rateLimit"`
}

// PostgresConfig holds the relational store connection settings.
// The same database carries document metadata and, when the pgvector
// backend is selected, the chunk vectors.
type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"sslMode"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"`
}

// DSN builds the connection string for the postgres driver.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// DatabaseConfigs groups all store configurations.
type DatabaseConfigs struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Milvus   MilvusConfig   `yaml:"milvus"`
}

// ProviderConfig selects and configures one model provider. Provider is
// "google", "openai" or "ollama"; BaseURL overrides the provider
// endpoint for OpenAI-compatible services (e.g. DeepSeek).
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
}

// LLMConfig configures the answer generator.
type LLMConfig struct {
	ProviderConfig `yaml:",inline"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"maxTokens"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	ProviderConfig `yaml:",inline"`
	// Dimension is the expected vector dimension. Zero means it is
	// pinned from the first embedding the model returns.
	Dimension int `yaml:"dimension"`
}

// RAGConfig holds the retrieval pipeline tuning knobs.
type RAGConfig struct {
	// VectorBackend selects the vector index: "pgvector", "milvus" or
	// "memory".
	VectorBackend       string          `yaml:"vectorBackend"`
	ChunkSize           int             `yaml:"chunkSize"`
	ChunkOverlap        int             `yaml:"chunkOverlap"`
	TopK                int             `yaml:"topK"`
	SimilarityThreshold float32         `yaml:"similarityThreshold"`
	MaxContextChars     int             `yaml:"maxContextChars"`
	Embedding           EmbeddingConfig `yaml:"embedding"`
	LLM                 LLMConfig       `yaml:"llm"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	Databases DatabaseConfigs `yaml:"databases"`
	RAG       RAGConfig       `yaml:"rag"`
}

// Defaults applied where the file leaves a knob unset.
const (
	DefaultChunkSize           = 500
	DefaultChunkOverlap        = 50
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.3
	DefaultMaxContextChars     = 6000
	DefaultMaxUploadSize       = 10 << 20
)

// LoadConfig reads, parses and validates the YAML configuration file.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Allow ${VAR} references for secrets like API keys.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.RAG.VectorBackend == "" {
		c.RAG.VectorBackend = "pgvector"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.RAG.SimilarityThreshold == 0 {
		c.RAG.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.RAG.MaxContextChars == 0 {
		c.RAG.MaxContextChars = DefaultMaxContextChars
	}
}

// Validate rejects configurations the pipeline must not start with.
func (c *AppConfig) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunkSize must be positive, got %d", schema.ErrConfiguration, c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunkOverlap must not be negative, got %d", schema.ErrConfiguration, c.RAG.ChunkOverlap)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunkOverlap (%d) must be less than chunkSize (%d)",
			schema.ErrConfiguration, c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	switch c.RAG.VectorBackend {
	case "pgvector", "milvus", "memory":
	default:
		return fmt.Errorf("%w: unknown vector backend %q", schema.ErrConfiguration, c.RAG.VectorBackend)
	}
	return nil
}
