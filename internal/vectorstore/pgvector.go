package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/models"
)

// PgIndex is the Postgres + pgvector implementation of Index. Partitions
// are rows filtered by the domain column; similarity is cosine.
type PgIndex struct {
	pool *pgxpool.Pool
}

// NewPgIndex connects a pool to the index tables.
func NewPgIndex(ctx context.Context, connString string) (*PgIndex, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PgIndex{pool: pool}, nil
}

// Ping verifies connectivity during startup checks.
func (idx *PgIndex) Ping(ctx context.Context) error {
	return idx.pool.Ping(ctx)
}

// Close releases the pool.
func (idx *PgIndex) Close() {
	idx.pool.Close()
}

// EnsureSchema creates the chunk table and vector index if missing.
// Dimension must match the configured embedding model.
func (idx *PgIndex) EnsureSchema(ctx context.Context, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS chunks_domain_idx ON chunks (domain)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
			USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := idx.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (idx *PgIndex) Upsert(ctx context.Context, chunks []models.DocumentChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	query := `INSERT INTO chunks (id, domain, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding`

	for i, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", chunk.ID, err)
		}

		_, err = idx.pool.Exec(ctx, query,
			chunk.ID, chunk.Domain.String(), chunk.Text, metadata,
			pgvector.NewVector(embeddings[i]))
		if err != nil {
			return apperr.Wrap(apperr.CodeRetrievalUnavailable,
				fmt.Sprintf("failed to upsert chunk %s", chunk.ID), err)
		}
	}

	log.Info().Int("chunks", len(chunks)).Msg("Upserted chunks")
	return nil
}

func (idx *PgIndex) Query(ctx context.Context, vector []float32, domain models.Domain, k int) (models.RetrievalResult, error) {
	query := `SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE domain = $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := idx.pool.Query(ctx, query, pgvector.NewVector(vector), domain.String(), k)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "vector query failed", err)
	}
	defer rows.Close()

	var result models.RetrievalResult
	for rows.Next() {
		var (
			chunk   models.DocumentChunk
			rawMeta []byte
			score   float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.Text, &rawMeta, &score); err != nil {
			return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "failed to scan chunk row", err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &chunk.Metadata); err != nil {
				log.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Skipping unreadable chunk metadata")
			}
		}
		chunk.Domain = domain
		result = append(result, models.ScoredChunk{Chunk: chunk, Score: clampScore(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "vector query failed", err)
	}

	return result, nil
}

func (idx *PgIndex) Stats(ctx context.Context) (Stats, error) {
	rows, err := idx.pool.Query(ctx, `SELECT domain, COUNT(*) FROM chunks GROUP BY domain`)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.CodeRetrievalUnavailable, "stats query failed", err)
	}
	defer rows.Close()

	stats := Stats{Partitions: make(map[models.Domain]int)}
	for rows.Next() {
		var (
			domain string
			count  int
		)
		if err := rows.Scan(&domain, &count); err != nil {
			return Stats{}, apperr.Wrap(apperr.CodeRetrievalUnavailable, "failed to scan stats row", err)
		}
		stats.Partitions[models.Domain(domain)] = count
		stats.TotalChunks += count
	}
	return stats, rows.Err()
}

func (idx *PgIndex) DeletePartition(ctx context.Context, domain models.Domain) error {
	tag, err := idx.pool.Exec(ctx, `DELETE FROM chunks WHERE domain = $1`, domain.String())
	if err != nil {
		return apperr.Wrap(apperr.CodeRetrievalUnavailable,
			fmt.Sprintf("failed to delete partition %s", domain), err)
	}

	log.Info().Str("domain", domain.String()).Int64("deleted", tag.RowsAffected()).Msg("Partition cleared")
	return nil
}

// clampScore keeps cosine similarity in [0,1]; tiny float drift below zero
// would otherwise surface as a negative score.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
