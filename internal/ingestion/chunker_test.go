package ingestion

import (
	"strings"
	"testing"

	"github.com/povarna/corporate-assistant/internal/models"
)

func TestChunkerSplitsByWordWindow(t *testing.T) {
	chunker, err := NewChunker(4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := "one two three four five six seven eight nine"
	chunks := chunker.Chunk("doc", models.DomainFinance, text, nil)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "one two three four" {
		t.Errorf("unexpected first chunk: %q", chunks[0].Text)
	}
	if chunks[1].Text != "four five six seven" {
		t.Errorf("expected overlap of one word, got %q", chunks[1].Text)
	}
	if chunks[2].Text != "seven eight nine" {
		t.Errorf("unexpected final chunk: %q", chunks[2].Text)
	}
}

func TestChunkerAssignsSequentialIDs(t *testing.T) {
	chunker, err := NewChunker(2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := chunker.Chunk("report", models.DomainLegal, "a b c d", nil)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "report_chunk_0" || chunks[1].ID != "report_chunk_1" {
		t.Errorf("unexpected ids: %s, %s", chunks[0].ID, chunks[1].ID)
	}
	for _, chunk := range chunks {
		if chunk.Domain != models.DomainLegal {
			t.Errorf("expected legal domain, got %s", chunk.Domain)
		}
	}
}

func TestChunkerCopiesMetadataPerChunk(t *testing.T) {
	chunker, err := NewChunker(2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metadata := map[string]string{"source": "policy.md"}
	chunks := chunker.Chunk("policy", models.DomainProject, "a b c d", metadata)

	chunks[0].Metadata["source"] = "mutated"
	if chunks[1].Metadata["source"] != "policy.md" {
		t.Error("metadata map shared between chunks")
	}
	if metadata["source"] != "policy.md" {
		t.Error("caller metadata mutated")
	}
}

func TestChunkerEmptyText(t *testing.T) {
	chunker, err := NewChunker(10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chunks := chunker.Chunk("doc", models.DomainFinance, "   \n\t ", nil); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %d", len(chunks))
	}
}

func TestNewChunkerValidation(t *testing.T) {
	if _, err := NewChunker(0, 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewChunker(5, 5); err == nil {
		t.Error("expected error for overlap >= size")
	}
	if _, err := NewChunker(5, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestChunkerTextShorterThanWindow(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := chunker.Chunk("doc", models.DomainFinance, "just a few words", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "just a few words") {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
}
