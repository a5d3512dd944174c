package models

import (
	"time"
)

// Domain identifies the knowledge partition an agent answers from.
type Domain string

const (
	DomainFinance Domain = "finance"
	DomainLegal   Domain = "legal"
	DomainProject Domain = "project"
)

// Domains lists every known domain in presentation order.
var Domains = []Domain{DomainFinance, DomainLegal, DomainProject}

func (d Domain) String() string {
	return string(d)
}

// Valid reports whether the domain is one of the known partitions.
func (d Domain) Valid() bool {
	switch d {
	case DomainFinance, DomainLegal, DomainProject:
		return true
	}
	return false
}

// ParseDomain normalises a raw string into a Domain. ok is false for
// anything outside the known set.
func ParseDomain(s string) (Domain, bool) {
	d := Domain(s)
	return d, d.Valid()
}

// Query is a single user question bound to a domain. Immutable once built.
type Query struct {
	ID        string
	Text      string
	Domain    Domain
	UserID    string
	Timestamp time.Time
}

// DocumentChunk is one retrievable fragment of a source document.
// Chunks are produced by the ingestion pipeline and are read-only to the
// serving path.
type DocumentChunk struct {
	ID       string
	Domain   Domain
	Text     string
	Metadata map[string]string
}

// ScoredChunk pairs a chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}

// RetrievalResult is an ordered sequence of scored chunks, descending by
// score. An empty result is legitimate and means "no data found".
type RetrievalResult []ScoredChunk

// IDs returns the chunk ids in retrieval order.
func (r RetrievalResult) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, sc := range r {
		ids = append(ids, sc.Chunk.ID)
	}
	return ids
}

// HasID reports whether id belongs to the retrieval result.
func (r RetrievalResult) HasID(id string) bool {
	for _, sc := range r {
		if sc.Chunk.ID == id {
			return true
		}
	}
	return false
}

// MeanScore is the average similarity across the result, 0 when empty.
func (r RetrievalResult) MeanScore() float64 {
	if len(r) == 0 {
		return 0
	}
	var sum float64
	for _, sc := range r {
		sum += sc.Score
	}
	return sum / float64(len(r))
}

// Answer is the generated response for one query. Sources must be a subset
// of the ids in the retrieval result the generator was given.
type Answer struct {
	Text       string
	Confidence float64
	LatencyMS  int64
	Sources    []string
}

// ChatReply is the outbound message handed back to the transport adapter.
type ChatReply struct {
	Text string
	// SelectAgent asks the transport to render the agent selection
	// keyboard alongside the text.
	SelectAgent bool
}
