// Package vectorstore provides access to the domain-partitioned vector
// index. The index itself is external; this package only shapes queries.
package vectorstore

import (
	"context"

	"github.com/povarna/corporate-assistant/internal/models"
)

// Stats summarises index contents for the ops API and /stats command.
type Stats struct {
	TotalChunks int
	Partitions  map[models.Domain]int
}

// Index is the narrow contract the retriever and the ingestion pipeline
// depend on. Query returns at most k chunks ordered by descending
// similarity; an empty result is not an error.
type Index interface {
	Upsert(ctx context.Context, chunks []models.DocumentChunk, embeddings [][]float32) error
	Query(ctx context.Context, vector []float32, domain models.Domain, k int) (models.RetrievalResult, error)
	Stats(ctx context.Context) (Stats, error)
	DeletePartition(ctx context.Context, domain models.Domain) error
}
