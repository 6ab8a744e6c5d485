package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-driven settings for the assistant.
type Config struct {
	// HTTP server
	Port string

	// Language model
	GeminiAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	// Ledger backend
	LedgerURL     string
	LedgerTimeout time.Duration

	// Auth. JWTSecret is the raw base64 value as issued to the ledger
	// service; it is decoded before signing checks.
	JWTSecret string

	// Knowledge retrieval
	IndexPath  string
	DocsDir    string
	RetrievalK int

	// Requests per minute allowed per client on /chat.
	ChatRateLimit int
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),

		LedgerURL:     getEnv("LEDGER_URL", "http://localhost:8085"),
		LedgerTimeout: getEnvDuration("LEDGER_TIMEOUT", 30*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),

		IndexPath:  getEnv("RAG_INDEX_PATH", "./chroma_db"),
		DocsDir:    getEnv("DOCS_DIR", "./data"),
		RetrievalK: getEnvInt("RETRIEVAL_K", 3),

		ChatRateLimit: getEnvInt("CHAT_RATE_LIMIT", 30),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET must be set")
	}

	if _, err := url.Parse(c.LedgerURL); err != nil || c.LedgerURL == "" {
		errors = append(errors, fmt.Sprintf("invalid ledger URL '%s'", c.LedgerURL))
	}

	if c.RetrievalK < 1 {
		errors = append(errors, fmt.Sprintf("invalid retrieval k %d: must be at least 1", c.RetrievalK))
	}

	if c.ChatRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid chat rate limit %d: must be at least 1", c.ChatRateLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
