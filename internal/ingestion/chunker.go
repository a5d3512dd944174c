package ingestion

import (
	"fmt"
	"strings"

	"github.com/povarna/corporate-assistant/internal/models"
)

// Chunker splits document text into overlapping word windows.
type Chunker struct {
	Size    int // words per chunk
	Overlap int // words shared between consecutive chunks
}

// NewChunker validates the window parameters.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// Chunk produces document chunks with ids of the form <docID>_chunk_<n>.
// Each chunk receives its own copy of the document metadata.
func (c *Chunker) Chunk(docID string, domain models.Domain, text string, metadata map[string]string) []models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []models.DocumentChunk
	step := c.Size - c.Overlap

	for i, n := 0, 0; i < len(words); i, n = i+step, n+1 {
		end := i + c.Size
		if end > len(words) {
			end = len(words)
		}

		chunkMeta := make(map[string]string, len(metadata))
		for k, v := range metadata {
			chunkMeta[k] = v
		}

		chunks = append(chunks, models.DocumentChunk{
			ID:       fmt.Sprintf("%s_chunk_%d", docID, n),
			Domain:   domain,
			Text:     strings.Join(words[i:end], " "),
			Metadata: chunkMeta,
		})

		if end == len(words) {
			break
		}
	}
	return chunks
}
