// Package generator produces the final answer for a query by conditioning
// a language-model completion on the retrieved context.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/models"
)

const retryBackoff = 200 * time.Millisecond

// ConfidenceFunc estimates how trustworthy an answer is, in [0,1]. The
// completion APIs in use report no calibrated confidence, so the policy is
// pluggable; see DefaultConfidence.
type ConfidenceFunc func(answer string, cited models.RetrievalResult) float64

// Generator wraps the completion service with the prompt, deadline and
// confidence policies.
type Generator struct {
	completer   llm.Completer
	temperature float64
	maxTokens   int
	confidence  ConfidenceFunc
}

// New builds a generator. confidence may be nil, which selects
// DefaultConfidence.
func New(completer llm.Completer, temperature float64, maxTokens int, confidence ConfidenceFunc) *Generator {
	if confidence == nil {
		confidence = DefaultConfidence
	}
	return &Generator{
		completer:   completer,
		temperature: temperature,
		maxTokens:   maxTokens,
		confidence:  confidence,
	}
}

// Complete generates an answer bounded by deadline. The returned
// Answer.Sources is always a subset of the ids in ctxResult; citations the
// model invents are dropped. A deadline overrun fails with TimeoutExceeded
// and is never retried.
func (g *Generator) Complete(ctx context.Context, query models.Query, ctxResult models.RetrievalResult, persona string, deadline time.Duration) (models.Answer, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req := llm.CompletionRequest{
		System:      persona,
		Prompt:      buildPrompt(query.Text, ctxResult),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	completion, err := g.complete(ctx, req)
	if err != nil {
		if apperr.Is(err, apperr.CodeTimeoutExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return models.Answer{}, apperr.Wrap(apperr.CodeTimeoutExceeded,
				fmt.Sprintf("completion exceeded %s deadline", deadline), err)
		}
		return models.Answer{}, err
	}

	cited := citedSubset(completion.Text, ctxResult)
	answer := models.Answer{
		Text:       completion.Text,
		Confidence: g.confidence(completion.Text, cited),
		LatencyMS:  time.Since(start).Milliseconds(),
		Sources:    cited.IDs(),
	}

	log.Info().
		Str("domain", query.Domain.String()).
		Int("context_chunks", len(ctxResult)).
		Int("cited", len(answer.Sources)).
		Float64("confidence", answer.Confidence).
		Int64("latency_ms", answer.LatencyMS).
		Msg("Answer generated")

	return answer, nil
}

// complete runs the completion with one bounded retry on transient
// failures. Timeouts are excluded from retry.
func (g *Generator) complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	completion, err := g.completer.Complete(ctx, req)
	if err != nil && apperr.Retryable(err) {
		log.Warn().Err(err).Msg("Completion failed, retrying once")
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return llm.Completion{}, apperr.Wrap(apperr.CodeTimeoutExceeded, "completion timed out", ctx.Err())
		}
		completion, err = g.completer.Complete(ctx, req)
	}
	return completion, err
}

// buildPrompt tags every chunk with its source id so the model can cite it.
func buildPrompt(queryText string, ctxResult models.RetrievalResult) string {
	var sb strings.Builder

	sb.WriteString("CONTEXT:\n")
	if len(ctxResult) == 0 {
		sb.WriteString("(no documents found)\n")
	}
	for _, sc := range ctxResult {
		fmt.Fprintf(&sb, "[%s] (relevance: %.2f)\n%s\n\n", sc.Chunk.ID, sc.Score, sc.Chunk.Text)
	}

	fmt.Fprintf(&sb, "QUESTION:\n%s\n\n", queryText)
	sb.WriteString(`INSTRUCTIONS:
1. Use ONLY the information from the context above.
2. If the context has no direct answer, say so explicitly.
3. Cite the sources you used by their bracketed ids, e.g. [finance/budget_chunk_2].
4. Be precise with figures and dates from the context.

ANSWER:`)

	return sb.String()
}

var citationPattern = regexp.MustCompile(`\[([^\[\]\s]+)\]`)

// citedSubset intersects the ids cited in the answer with the retrieval
// result, preserving retrieval order. The model cannot introduce sources
// the retriever never produced.
func citedSubset(answer string, ctxResult models.RetrievalResult) models.RetrievalResult {
	mentioned := make(map[string]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		mentioned[match[1]] = true
	}

	var cited models.RetrievalResult
	for _, sc := range ctxResult {
		if mentioned[sc.Chunk.ID] {
			cited = append(cited, sc)
		}
	}
	return cited
}

// DefaultConfidence is the mean similarity of the sources the answer
// actually cites. Uncited answers score zero; the agent layer decides how
// to present low-confidence output.
func DefaultConfidence(answer string, cited models.RetrievalResult) float64 {
	return cited.MeanScore()
}
