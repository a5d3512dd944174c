package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/agent"
	"github.com/povarna/corporate-assistant/internal/api"
	"github.com/povarna/corporate-assistant/internal/api/middleware"
	"github.com/povarna/corporate-assistant/internal/config"
	"github.com/povarna/corporate-assistant/internal/generator"
	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/ratelimit"
	"github.com/povarna/corporate-assistant/internal/retriever"
	"github.com/povarna/corporate-assistant/internal/router"
	"github.com/povarna/corporate-assistant/internal/telegram"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

const version = "1.0.0"

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	profiles, err := config.LoadAgents(cfg.AgentsConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load agent profiles")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// LLM backend
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM backend")
	}

	// Vector index
	index, err := vectorstore.NewPgIndex(ctx, cfg.PostgresConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer index.Close()
	if err := index.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Postgres is unreachable")
	}
	if err := index.EnsureSchema(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure vector schema")
	}

	// Sessions and rate limiting; Redis when configured, otherwise in-memory.
	limits := ratelimit.Limits{
		PerMinute: cfg.MaxRequestsPerMinute,
		PerHour:   cfg.MaxRequestsPerHour,
	}
	var sessions router.SessionStore = router.NewMemorySessionStore()
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(limits)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis is unreachable")
		}
		sessions = router.NewRedisSessionStore(client)
		limiter = ratelimit.NewRedisLimiter(client, limits)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis for sessions and rate limiting")
	}

	// Wire Components
	ret := retriever.New(backend, index, cfg.SimilarityThreshold, cfg.RetrievalTimeout())
	gen := generator.New(backend, cfg.Temperature, cfg.MaxTokens, generator.DefaultConfidence)

	registry, err := agent.BuildRegistry(cfg, profiles, ret, gen)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build agent registry")
	}

	agents := make([]router.Agent, 0, len(registry.Domains()))
	for _, domain := range registry.Domains() {
		a, err := registry.Get(domain)
		if err != nil {
			log.Fatal().Err(err).Str("domain", string(domain)).Msg("Missing agent")
		}
		agents = append(agents, a)
	}

	rtr := router.New(agents, sessions, router.Options{
		Limiter:      limiter,
		Index:        index,
		AllowedUsers: cfg.AllowedUsers(),
		AdminUsers:   cfg.AdminUsers(),
	})

	// Ops API
	handler := api.NewHandler(index, version)
	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	api.RegisterRoutes(container, handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.APIPort),
		Handler: corsHandler.Handler(container),
	}
	go func() {
		log.Info().Str("address", server.Addr).Msg("Starting ops API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Ops API server failed")
		}
	}()

	// Telegram transport
	bot, err := telegram.New(cfg.TelegramToken, rtr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram bot")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("provider", string(cfg.Provider)).
		Msg("Corporate assistant started")

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Bot stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ops API shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}

// backend bundles the embedding and completion sides of one provider.
type llmBackend interface {
	llm.Embedder
	llm.Completer
}

func newBackend(ctx context.Context, cfg *config.Config) (llmBackend, error) {
	switch cfg.Provider {
	case config.ProviderBedrock:
		return llm.NewBedrockClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID, cfg.TitanModelID)
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
