package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

const defaultBatchSize = 50

// Pipeline loads documents from disk and indexes them into a partition.
type Pipeline struct {
	embedder  llm.Embedder
	index     vectorstore.Index
	chunker   *Chunker
	batchSize int
}

// NewPipeline creates an ingestion pipeline with the given chunker.
func NewPipeline(embedder llm.Embedder, index vectorstore.Index, chunker *Chunker) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		chunker:   chunker,
		batchSize: defaultBatchSize,
	}
}

// Report summarizes a completed ingestion run.
type Report struct {
	Files  int
	Chunks int
}

// Run indexes every supported document under dir into the domain partition.
// When replace is true the partition is cleared first.
func (p *Pipeline) Run(ctx context.Context, dir string, domain models.Domain, replace bool) (Report, error) {
	var report Report

	if !domain.Valid() {
		return report, fmt.Errorf("unknown domain: %s", domain)
	}

	if replace {
		log.Info().Str("domain", string(domain)).Msg("Clearing existing partition")
		if err := p.index.DeletePartition(ctx, domain); err != nil {
			return report, fmt.Errorf("failed to clear partition %s: %w", domain, err)
		}
	}

	var chunks []models.DocumentChunk
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}

		text, err := LoadFile(path)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			log.Warn().Str("file", path).Msg("Skipping empty document")
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		metadata := map[string]string{
			"source": filepath.Base(path),
			"date":   info.ModTime().UTC().Format("2006-01-02"),
		}

		fileChunks := p.chunker.Chunk(docID(path), domain, text, metadata)
		chunks = append(chunks, fileChunks...)
		report.Files++

		log.Info().
			Str("file", path).
			Int("chunks", len(fileChunks)).
			Msg("Loaded document")
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	if len(chunks) == 0 {
		return report, nil
	}

	start := time.Now()
	for begin := 0; begin < len(chunks); begin += p.batchSize {
		end := begin + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[begin:end]

		embeddings := make([][]float32, len(batch))
		for i, chunk := range batch {
			vector, err := p.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				return report, fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
			}
			embeddings[i] = vector
		}

		if err := p.index.Upsert(ctx, batch, embeddings); err != nil {
			return report, fmt.Errorf("failed to upsert batch: %w", err)
		}
		report.Chunks += len(batch)

		log.Info().
			Int("indexed", report.Chunks).
			Int("total", len(chunks)).
			Msg("Indexed batch")
	}

	log.Info().
		Str("domain", string(domain)).
		Int("files", report.Files).
		Int("chunks", report.Chunks).
		Dur("duration", time.Since(start)).
		Msg("Ingestion complete")
	return report, nil
}

// docID derives a stable chunk id prefix from the file name.
func docID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, base)
}
