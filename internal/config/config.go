package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// chunking
	ChunkSize     int
	ChunkOverlap  int
	ChunkingLevel int // 0 means use explicit size/overlap
	PreserveTerms []string

	// retrieval
	HybridSearch   bool
	SemanticWeight float32
	KeywordWeight  float32
	MinSimilarity  float32
	TopK           int

	// embeddings
	EmbeddingBackend   string // local | openai
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDim       int
	OpenAIAPIKey       string

	// vector store
	VectorBackend    string // local | qdrant
	IndexPath        string
	MetaPath         string
	QdrantURL        string
	QdrantCollection string

	// catalog
	DBPath string

	// generation
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string

	// serving
	APIPort   string
	LogLevel  string
	LogFormat string // text | json
}

// Load reads configuration from environment variables and returns a Config
// struct. A .env file in the current directory or a parent directory is
// loaded first; real environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// walk up a few levels so running from a subdirectory still finds .env
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		PreserveTerms:      splitList(getEnv("PRESERVE_TERMS", "")),
		EmbeddingBackend:   getEnv("EMBEDDING_BACKEND", "local"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		VectorBackend:      getEnv("VECTOR_BACKEND", "local"),
		IndexPath:          getEnv("INDEX_PATH", "./data/index.bin"),
		MetaPath:           getEnv("META_PATH", "./data/meta.json"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		DBPath:             getEnv("DB_PATH", "./data/docuchat.db"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 800); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 120); err != nil {
		return nil, err
	}
	if cfg.ChunkingLevel, err = getEnvInt("CHUNKING_LEVEL", 0); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getEnvInt("TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.HybridSearch, err = getEnvBool("HYBRID_SEARCH", true); err != nil {
		return nil, err
	}
	if cfg.SemanticWeight, err = getEnvFloat("SEMANTIC_WEIGHT", 0.7); err != nil {
		return nil, err
	}
	if cfg.KeywordWeight, err = getEnvFloat("KEYWORD_WEIGHT", 0.3); err != nil {
		return nil, err
	}
	if cfg.MinSimilarity, err = getEnvFloat("MIN_SIMILARITY", 0.4); err != nil {
		return nil, err
	}

	// EMBEDDING_DIM must match the encoder's output width; there is no safe
	// default because a wrong value silently poisons the index.
	dimStr := getEnv("EMBEDDING_DIM", "")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIM is required")
	}
	if cfg.EmbeddingDim, err = strconv.Atoi(dimStr); err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIM must be a valid integer: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	for _, path := range []string{cfg.DBPath, cfg.IndexPath, cfg.MetaPath} {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be greater than 0")
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be greater than 0")
	}
	if c.SemanticWeight < 0 || c.SemanticWeight > 1 || c.KeywordWeight < 0 || c.KeywordWeight > 1 {
		return fmt.Errorf("search weights must be in [0, 1]")
	}
	if math.Abs(float64(c.SemanticWeight+c.KeywordWeight)-1.0) > 0.01 {
		return fmt.Errorf("SEMANTIC_WEIGHT and KEYWORD_WEIGHT must sum to 1.0")
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("MIN_SIMILARITY must be in [0, 1]")
	}
	switch c.EmbeddingBackend {
	case "local", "openai":
	default:
		return fmt.Errorf("EMBEDDING_BACKEND must be local or openai, got %q", c.EmbeddingBackend)
	}
	if c.EmbeddingBackend == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_BACKEND=openai")
	}
	switch c.VectorBackend {
	case "local", "qdrant":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be local or qdrant, got %q", c.VectorBackend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultValue float32) (float32, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return float32(parsed), nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
