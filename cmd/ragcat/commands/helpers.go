package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quanfold/ragcat-go/internal/embed"
	"github.com/quanfold/ragcat-go/internal/generate"
	"github.com/quanfold/ragcat-go/internal/rag"
	"github.com/quanfold/ragcat-go/internal/vstore"
)

// Service endpoint and database defaults. Everything is overridable via env
// vars (or the YAML config file, which config.Load maps onto the same vars).
const (
	defaultEmbedURL    = "http://localhost:8083/api/embed"
	defaultGenerateURL = "http://localhost:8083/api/rag"
	defaultDBHost      = "localhost"
	defaultDBPort      = 5433
	defaultDBName      = "rag_llm_optimized"
	defaultDBUser      = "yugabyte"
	defaultDBPassword  = "yugabyte"
	defaultTableFilter = "dda_transactions"
	defaultMaxTokens   = 100
	defaultTemperature = 0.3
)

// newEmbedClient constructs the embedding service client from env settings.
func newEmbedClient() *embed.Client {
	return embed.New(&embed.Config{
		URL:     getEnvOrDefault("EMBED_API_URL", defaultEmbedURL),
		Timeout: time.Duration(getEnvInt("EMBED_TIMEOUT", 120)) * time.Second,
	})
}

// newGenerateClient constructs the generation service client from env settings.
func newGenerateClient() *generate.Client {
	return generate.New(&generate.Config{
		URL:     getEnvOrDefault("GENERATE_API_URL", defaultGenerateURL),
		Timeout: time.Duration(getEnvInt("GENERATE_TIMEOUT", 600)) * time.Second,
	})
}

// openStore opens the vector store connection pool from env settings.
func openStore(ctx context.Context) (*vstore.Store, error) {
	store, err := vstore.Open(ctx, &vstore.Config{
		Host:     getEnvOrDefault("DB_HOST", defaultDBHost),
		Port:     getEnvInt("DB_PORT", defaultDBPort),
		Name:     getEnvOrDefault("DB_NAME", defaultDBName),
		User:     getEnvOrDefault("DB_USER", defaultDBUser),
		Password: getEnvOrDefault("DB_PASSWORD", defaultDBPassword),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}

// pipelineConfig builds the retrieval/generation settings from env vars.
func pipelineConfig() rag.Config {
	return rag.Config{
		TableFilter: getEnvOrDefault("RAG_TABLE_FILTER", defaultTableFilter),
		TopK:        getEnvInt("RAG_TOP_K", rag.DefaultTopK),
		MaxTokens:   getEnvInt("RAG_MAX_TOKENS", defaultMaxTokens),
		Temperature: getEnvFloat("RAG_TEMPERATURE", defaultTemperature),
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float64 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
