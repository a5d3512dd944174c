package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Provider selects which LLM backend serves embeddings and completions.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

// Config holds all process-wide settings. Loaded once at start, immutable
// afterwards.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// LLM provider
	Provider       Provider `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey   string   `envconfig:"OPENAI_API_KEY"`
	OpenAIModel    string   `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string   `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	AWSRegion      string   `envconfig:"AWS_REGION" default:"us-east-1"`
	ClaudeModelID  string   `envconfig:"CLAUDE_MODEL_ID" default:"anthropic.claude-3-5-sonnet-20240620-v1:0"`
	TitanModelID   string   `envconfig:"TITAN_MODEL_ID" default:"amazon.titan-embed-text-v2:0"`
	Temperature    float64  `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	MaxTokens      int      `envconfig:"LLM_MAX_TOKENS" default:"1000"`

	// Must match the embedding model's output size; 1536 for
	// text-embedding-3-small, 1024 for Titan v2.
	EmbeddingDimension int `envconfig:"EMBEDDING_DIMENSION" default:"1536"`

	// Retrieval
	TopK                int     `envconfig:"TOP_K_RESULTS" default:"5"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.7"`
	RetrievalTimeoutMS  int     `envconfig:"RETRIEVAL_TIMEOUT_MS" default:"1500"`

	// Response policy
	MaxResponseTimeMS int     `envconfig:"MAX_RESPONSE_TIME_MS" default:"3000"`
	MinAccuracy       float64 `envconfig:"MIN_ACCURACY" default:"0.85"`

	// Vector store (Postgres + pgvector)
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDatabase string `envconfig:"POSTGRES_DB" default:"corporate_kb"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// Redis (sessions + rate limiting); empty address keeps everything
	// in process memory.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Telegram
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	// Ops API
	APIPort string `envconfig:"OPS_API_PORT" default:"18080"`

	// Access control; empty allowlist means open access.
	AllowedUserIDs string `envconfig:"ALLOWED_USER_IDS"`
	AdminUserIDs   string `envconfig:"ADMIN_USER_IDS"`

	// Rate limiting
	MaxRequestsPerMinute int `envconfig:"MAX_REQUESTS_PER_MINUTE" default:"10"`
	MaxRequestsPerHour   int `envconfig:"MAX_REQUESTS_PER_HOUR" default:"100"`

	// Agent profiles
	AgentsConfigPath string `envconfig:"AGENTS_CONFIG_PATH" default:"configs/agents.yaml"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderBedrock:
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required when LLM_PROVIDER=bedrock")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}

	if c.MinAccuracy < 0 || c.MinAccuracy > 1 {
		return fmt.Errorf("MIN_ACCURACY must be in [0,1], got %v", c.MinAccuracy)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0,1], got %v", c.SimilarityThreshold)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K_RESULTS must be positive, got %d", c.TopK)
	}
	if c.MaxResponseTimeMS <= 0 {
		return fmt.Errorf("MAX_RESPONSE_TIME_MS must be positive, got %d", c.MaxResponseTimeMS)
	}
	return nil
}

// MaxResponseTime returns the completion deadline as a duration.
func (c *Config) MaxResponseTime() time.Duration {
	return time.Duration(c.MaxResponseTimeMS) * time.Millisecond
}

// RetrievalTimeout returns the retriever deadline as a duration.
func (c *Config) RetrievalTimeout() time.Duration {
	return time.Duration(c.RetrievalTimeoutMS) * time.Millisecond
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PostgresConnString assembles the pgx connection string.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDatabase, c.PostgresSSLMode)
}

// AllowedUsers parses the comma-separated allowlist. Empty means everyone.
func (c *Config) AllowedUsers() []string {
	return splitIDs(c.AllowedUserIDs)
}

// AdminUsers parses the comma-separated admin list.
func (c *Config) AdminUsers() []string {
	return splitIDs(c.AdminUserIDs)
}

func splitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
