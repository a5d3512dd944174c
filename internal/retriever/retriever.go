// Package retriever turns a query into the top-K most relevant document
// chunks from the domain partition of the vector index.
package retriever

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

const retryBackoff = 200 * time.Millisecond

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder  llm.Embedder
	index     vectorstore.Index
	threshold float64
	timeout   time.Duration
}

// New builds a retriever. threshold drops matches below the configured
// similarity; timeout bounds the embed+search pair so a slow index cannot
// consume the whole response budget.
func New(embedder llm.Embedder, index vectorstore.Index, threshold float64, timeout time.Duration) *Retriever {
	return &Retriever{
		embedder:  embedder,
		index:     index,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Search returns between 0 and k chunks ordered by descending similarity.
// An empty result means "no data found" and is not an error.
func (r *Retriever) Search(ctx context.Context, query models.Query, k int) (models.RetrievalResult, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, apperr.New(apperr.CodeInvalidQuery, "query text is empty")
	}
	if !query.Domain.Valid() {
		return nil, apperr.New(apperr.CodeInvalidDomain, "unknown domain "+query.Domain.String())
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vector, err := r.embed(ctx, query.Text)
	if err != nil {
		return nil, err
	}

	result, err := r.queryIndex(ctx, vector, query.Domain, k)
	if err != nil {
		return nil, err
	}

	filtered := result[:0:0]
	for _, sc := range result {
		if sc.Score >= r.threshold {
			filtered = append(filtered, sc)
		}
	}

	log.Info().
		Str("domain", query.Domain.String()).
		Int("k", k).
		Int("found", len(filtered)).
		Float64("threshold", r.threshold).
		Msg("Retrieval completed")

	if len(filtered) == 0 {
		log.Warn().Str("domain", query.Domain.String()).Msg("No results above similarity threshold")
	}
	return filtered, nil
}

// embed runs the embedding call with one bounded retry on transient
// failures. Anything that still fails surfaces as RetrievalUnavailable.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil && apperr.Retryable(err) {
		log.Warn().Err(err).Msg("Embedding failed, retrying once")
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "embedding call timed out", ctx.Err())
		}
		vector, err = r.embedder.Embed(ctx, text)
	}
	if err != nil {
		if apperr.Is(err, apperr.CodeInvalidQuery) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "embedding service failed", err)
	}
	return vector, nil
}

func (r *Retriever) queryIndex(ctx context.Context, vector []float32, domain models.Domain, k int) (models.RetrievalResult, error) {
	result, err := r.index.Query(ctx, vector, domain, k)
	if err != nil && apperr.Retryable(err) {
		log.Warn().Err(err).Str("domain", domain.String()).Msg("Index query failed, retrying once")
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "index query timed out", ctx.Err())
		}
		result, err = r.index.Query(ctx, vector, domain, k)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRetrievalUnavailable, "index query failed", err)
	}
	return result, nil
}
