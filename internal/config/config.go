// Package config provides YAML-based configuration for ragcat.
// Configuration is loaded with a layered precedence: defaults → YAML file →
// env vars. Environment variables always win, so an operator who only sets
// EMBED_API_URL and DB_HOST never needs a config file.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. RAGCAT_CONFIG environment variable
//  3. ~/.ragcat/config.yaml
//  4. ./ragcat.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming.
type Config struct {
	// Embedding configures the external embedding service client.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Generation configures the external text-generation service client.
	Generation GenerationConfig `yaml:"generation"`

	// Database configures the vector store connection.
	Database DatabaseConfig `yaml:"database"`

	// Retrieval configures the similarity search defaults.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Server configures the HTTP API server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures local ask-history persistence.
	History HistoryConfig `yaml:"history"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	// URL is the embedding endpoint (e.g. "http://localhost:8083/api/embed").
	URL string `yaml:"url"`
	// TimeoutSeconds is the per-request timeout for embed calls.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// GenerationConfig holds generation service settings.
type GenerationConfig struct {
	// URL is the generation endpoint (e.g. "http://localhost:8083/api/rag").
	URL string `yaml:"url"`
	// TimeoutSeconds is the per-request timeout for generate calls.
	// Generation on CPU is slow; the default is 600 seconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// MaxTokens caps the generated answer length.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float64 `yaml:"temperature"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname.
	Host string `yaml:"host"`
	// Port is the database server port.
	Port int `yaml:"port"`
	// Name is the database name.
	Name string `yaml:"name"`
	// User is the database user.
	User string `yaml:"user"`
	// Password is the database password. Prefer env var DB_PASSWORD.
	Password string `yaml:"password"`
	// SSLMode is the libpq sslmode value (default: disable).
	SSLMode string `yaml:"sslmode"`
}

// RetrievalConfig holds similarity search defaults.
type RetrievalConfig struct {
	// Table is the table_name value retrieval is scoped to.
	Table string `yaml:"table"`
	// TopK is the number of contexts retrieved per question.
	TopK int `yaml:"top_k"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds ask-history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBED_API_URL", func(c *Config) string { return c.Embedding.URL }},
	{"EMBED_TIMEOUT", func(c *Config) string { return intStr(c.Embedding.TimeoutSeconds) }},
	{"GENERATE_API_URL", func(c *Config) string { return c.Generation.URL }},
	{"GENERATE_TIMEOUT", func(c *Config) string { return intStr(c.Generation.TimeoutSeconds) }},
	{"RAG_MAX_TOKENS", func(c *Config) string { return intStr(c.Generation.MaxTokens) }},
	{"RAG_TEMPERATURE", func(c *Config) string { return floatStr(c.Generation.Temperature) }},
	{"DB_HOST", func(c *Config) string { return c.Database.Host }},
	{"DB_PORT", func(c *Config) string { return intStr(c.Database.Port) }},
	{"DB_NAME", func(c *Config) string { return c.Database.Name }},
	{"DB_USER", func(c *Config) string { return c.Database.User }},
	{"DB_PASSWORD", func(c *Config) string { return c.Database.Password }},
	{"DB_SSLMODE", func(c *Config) string { return c.Database.SSLMode }},
	{"RAG_TABLE_FILTER", func(c *Config) string { return c.Retrieval.Table }},
	{"RAG_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"RAGCAT_HISTORY_DB", func(c *Config) string { return c.History.DBPath }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("RAGCAT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".ragcat", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("ragcat.yaml"); err == nil {
		return "ragcat.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
