package vectorstore

import (
	"context"
	"testing"

	"github.com/povarna/corporate-assistant/internal/models"
)

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()

	chunks := []models.DocumentChunk{
		{ID: "fin-1", Domain: models.DomainFinance, Text: "marketing budget"},
		{ID: "fin-2", Domain: models.DomainFinance, Text: "office rent"},
		{ID: "fin-3", Domain: models.DomainFinance, Text: "training limit"},
		{ID: "leg-1", Domain: models.DomainLegal, Text: "nda template"},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{1, 0, 0},
	}
	if err := idx.Upsert(context.Background(), chunks, embeddings); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestMemoryIndex_QueryOrderedAndBounded(t *testing.T) {
	idx := seedIndex(t)

	result, err := idx.Query(context.Background(), []float32{1, 0, 0}, models.DomainFinance, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result))
	}
	if result[0].Chunk.ID != "fin-1" {
		t.Errorf("expected fin-1 first, got %s", result[0].Chunk.ID)
	}
	for i := 1; i < len(result); i++ {
		if result[i].Score > result[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, result[i].Score, result[i-1].Score)
		}
	}
}

func TestMemoryIndex_PartitionIsolation(t *testing.T) {
	idx := seedIndex(t)

	result, err := idx.Query(context.Background(), []float32{1, 0, 0}, models.DomainLegal, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range result {
		if sc.Chunk.Domain != models.DomainLegal {
			t.Errorf("legal query returned chunk from %s", sc.Chunk.Domain)
		}
	}
}

func TestMemoryIndex_EmptyPartition(t *testing.T) {
	idx := seedIndex(t)

	result, err := idx.Query(context.Background(), []float32{1, 0, 0}, models.DomainProject, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %d", len(result))
	}
}

func TestMemoryIndex_Stats(t *testing.T) {
	idx := seedIndex(t)

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 4 {
		t.Errorf("expected 4 total chunks, got %d", stats.TotalChunks)
	}
	if stats.Partitions[models.DomainFinance] != 3 {
		t.Errorf("expected 3 finance chunks, got %d", stats.Partitions[models.DomainFinance])
	}
}

func TestMemoryIndex_DeletePartition(t *testing.T) {
	idx := seedIndex(t)

	if err := idx.DeletePartition(context.Background(), models.DomainFinance); err != nil {
		t.Fatal(err)
	}

	stats, _ := idx.Stats(context.Background())
	if stats.Partitions[models.DomainFinance] != 0 {
		t.Error("finance partition not cleared")
	}
	if stats.Partitions[models.DomainLegal] != 1 {
		t.Error("legal partition should be untouched")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors should score ~1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %v", got)
	}
}
