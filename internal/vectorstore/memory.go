package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/povarna/corporate-assistant/internal/models"
)

type memoryEntry struct {
	chunk     models.DocumentChunk
	embedding []float32
}

// MemoryIndex is an in-process Index used by tests and local development.
// It mirrors the query semantics of the Postgres implementation.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]memoryEntry)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, chunks []models.DocumentChunk, embeddings [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, chunk := range chunks {
		m.entries[chunk.ID] = memoryEntry{chunk: chunk, embedding: embeddings[i]}
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, domain models.Domain, k int) (models.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result models.RetrievalResult
	for _, entry := range m.entries {
		if entry.chunk.Domain != domain {
			continue
		}
		result = append(result, models.ScoredChunk{
			Chunk: entry.chunk,
			Score: cosineSimilarity(vector, entry.embedding),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if len(result) > k {
		result = result[:k]
	}
	return result, nil
}

func (m *MemoryIndex) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Partitions: make(map[models.Domain]int)}
	for _, entry := range m.entries {
		stats.Partitions[entry.chunk.Domain]++
		stats.TotalChunks++
	}
	return stats, nil
}

func (m *MemoryIndex) DeletePartition(ctx context.Context, domain models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, entry := range m.entries {
		if entry.chunk.Domain == domain {
			delete(m.entries, id)
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampScore(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
