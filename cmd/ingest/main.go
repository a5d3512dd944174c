package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/config"
	"github.com/povarna/corporate-assistant/internal/ingestion"
	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

const (
	chunkSize    = 300
	chunkOverlap = 50
)

func main() {
	dir := flag.String("dir", "", "directory of documents to ingest")
	domainName := flag.String("domain", "", "target partition: finance, legal or project")
	replace := flag.Bool("replace", false, "clear the partition before ingesting")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *dir == "" || *domainName == "" {
		flag.Usage()
		os.Exit(2)
	}
	domain, ok := models.ParseDomain(*domainName)
	if !ok {
		log.Fatal().Str("domain", *domainName).Msg("Unknown domain")
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	var embedder llm.Embedder
	switch cfg.Provider {
	case config.ProviderBedrock:
		client, err := llm.NewBedrockClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID, cfg.TitanModelID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Bedrock client")
		}
		embedder = client
	case config.ProviderOpenAI:
		embedder = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.OpenAIModel)
	default:
		log.Fatal().Str("provider", string(cfg.Provider)).Msg("Unknown LLM provider")
	}

	index, err := vectorstore.NewPgIndex(ctx, cfg.PostgresConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer index.Close()
	if err := index.EnsureSchema(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure vector schema")
	}

	chunker, err := ingestion.NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid chunker parameters")
	}
	pipeline := ingestion.NewPipeline(embedder, index, chunker)

	report, err := pipeline.Run(ctx, *dir, domain, *replace)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	fmt.Printf("Indexed %d chunks from %d files into %s\n", report.Chunks, report.Files, domain)
}
