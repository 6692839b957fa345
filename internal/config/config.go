// Package config provides environment-driven configuration for isomatch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Graph backends that can resolve node references.
const (
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// Neo4j identifier modes.
const (
	Neo4jIDElement = "element"
	Neo4jIDLegacy  = "legacy"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL   Secret
	DBMaxConns    int32
	Port          string
	MetricsPort   string
	ListenHost    string
	CORSOrigins   []string
	LogLevel      string
	GraphBackend  string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword Secret
	Neo4jDatabase string
	Neo4jIDMode   string
	MaxEmbeddings int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   Secret(envOrDefault("DATABASE_URL", "")),
		Port:          envOrDefault("PORT", "3040"),
		MetricsPort:   envOrDefault("METRICS_PORT", "9140"),
		ListenHost:    envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		GraphBackend:  envOrDefault("GRAPH_BACKEND", BackendPostgres),
		Neo4jURI:      envOrDefault("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     envOrDefault("NEO4J_USER", "neo4j"),
		Neo4jPassword: Secret(envOrDefault("NEO4J_PASSWORD", "")),
		Neo4jDatabase: envOrDefault("NEO4J_DATABASE", "neo4j"),
		Neo4jIDMode:   envOrDefault("NEO4J_ID_MODE", Neo4jIDElement),
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "20"))
	if err != nil || maxConns < 2 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 2 and 200")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // bounded above.

	maxEmbeddings, err := strconv.Atoi(envOrDefault("MAX_EMBEDDINGS", "10000"))
	if err != nil || maxEmbeddings < 1 || maxEmbeddings > 10000 {
		return nil, fmt.Errorf("MAX_EMBEDDINGS must be an integer between 1 and 10000")
	}
	cfg.MaxEmbeddings = maxEmbeddings

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the API listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
