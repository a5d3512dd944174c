package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/models"
)

type stubSearcher struct {
	result models.RetrievalResult
	err    error
	calls  int
}

func (s *stubSearcher) Search(ctx context.Context, query models.Query, k int) (models.RetrievalResult, error) {
	s.calls++
	return s.result, s.err
}

type stubGenerator struct {
	answer models.Answer
	err    error
	delay  time.Duration
	calls  int
	lastCtx models.RetrievalResult
}

func (s *stubGenerator) Complete(ctx context.Context, query models.Query, ctxResult models.RetrievalResult, persona string, deadline time.Duration) (models.Answer, error) {
	s.calls++
	s.lastCtx = ctxResult
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		if s.delay > deadline {
			return models.Answer{}, apperr.New(apperr.CodeTimeoutExceeded, "deadline exceeded")
		}
	}
	return s.answer, s.err
}

func financeParams() Params {
	return Params{
		Domain:        models.DomainFinance,
		Persona:       "finance persona",
		Welcome:       "welcome",
		TopK:          3,
		Deadline:      time.Second,
		MinConfidence: 0.85,
	}
}

func financeRetrieval() models.RetrievalResult {
	return models.RetrievalResult{
		{Chunk: models.DocumentChunk{ID: "fin-1", Domain: models.DomainFinance, Text: "budget is 500,000"}, Score: 0.9},
	}
}

func TestAnswer_DomainMismatch(t *testing.T) {
	a := New(financeParams(), &stubSearcher{}, &stubGenerator{})

	query := models.Query{Text: "What is GDPR?", Domain: models.DomainLegal, UserID: "1"}
	_, err := a.Answer(context.Background(), query)
	if !apperr.Is(err, apperr.CodeDomainMismatch) {
		t.Errorf("expected DomainMismatch, got %v", err)
	}
}

func TestAnswer_EmptyRetrievalSkipsGenerator(t *testing.T) {
	gen := &stubGenerator{}
	a := New(financeParams(), &stubSearcher{result: nil}, gen)

	query := models.Query{Text: "What is the capital of Mars?", Domain: models.DomainFinance, UserID: "1"}
	answer, err := a.Answer(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}

	if gen.calls != 0 {
		t.Error("generator must not be called with empty context")
	}
	if !strings.Contains(answer.Text, "could not find") {
		t.Errorf("expected a no-information answer, got %q", answer.Text)
	}
	if answer.Confidence > 0.85 {
		t.Errorf("no-data confidence must stay below the minimum, got %v", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Error("no-data answer must cite nothing")
	}
}

func TestAnswer_EmptyRetrievalDeterministic(t *testing.T) {
	a := New(financeParams(), &stubSearcher{result: nil}, &stubGenerator{})
	query := models.Query{Text: "What is the capital of Mars?", Domain: models.DomainFinance, UserID: "1"}

	first, _ := a.Answer(context.Background(), query)
	second, _ := a.Answer(context.Background(), query)
	if first.Text != second.Text || first.Confidence != second.Confidence {
		t.Error("no-data answers must be deterministic")
	}
}

func TestAnswer_TimeoutPropagates(t *testing.T) {
	params := financeParams()
	params.Deadline = 100 * time.Millisecond
	gen := &stubGenerator{delay: 400 * time.Millisecond}
	a := New(params, &stubSearcher{result: financeRetrieval()}, gen)

	query := models.Query{Text: "budget?", Domain: models.DomainFinance, UserID: "1"}

	start := time.Now()
	_, err := a.Answer(context.Background(), query)
	if !apperr.Is(err, apperr.CodeTimeoutExceeded) {
		t.Fatalf("expected TimeoutExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Errorf("answer took too long to fail: %v", elapsed)
	}
}

func TestAnswer_Idempotent(t *testing.T) {
	answer := models.Answer{Text: "The budget is 500,000 [fin-1]", Confidence: 0.9, Sources: []string{"fin-1"}}
	a := New(financeParams(), &stubSearcher{result: financeRetrieval()}, &stubGenerator{answer: answer})

	query := models.Query{Text: "budget?", Domain: models.DomainFinance, UserID: "1"}

	first, err := a.Answer(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Answer(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}

	if first.Text != second.Text || first.Confidence != second.Confidence {
		t.Error("identical queries against deterministic stubs must yield identical answers")
	}
}

func TestAnswer_RerankAppliedBeforeGeneration(t *testing.T) {
	params := Params{
		Domain:        models.DomainProject,
		Persona:       "project persona",
		TopK:          3,
		Deadline:      time.Second,
		MinConfidence: 0.85,
		Rerank:        ProjectRerank,
	}

	retrieval := models.RetrievalResult{
		{Chunk: models.DocumentChunk{ID: "old", Domain: models.DomainProject, Text: "old plan",
			Metadata: map[string]string{"date": "2024-01-10"}}, Score: 0.95},
		{Chunk: models.DocumentChunk{ID: "new", Domain: models.DomainProject, Text: "new plan",
			Metadata: map[string]string{"date": "2025-06-01"}}, Score: 0.80},
	}

	gen := &stubGenerator{answer: models.Answer{Text: "ok", Confidence: 0.9}}
	a := New(params, &stubSearcher{result: retrieval}, gen)

	query := models.Query{Text: "deadline?", Domain: models.DomainProject, UserID: "1"}
	if _, err := a.Answer(context.Background(), query); err != nil {
		t.Fatal(err)
	}

	if len(gen.lastCtx) != 2 || gen.lastCtx[0].Chunk.ID != "new" {
		t.Errorf("expected most recent source first, got %v", gen.lastCtx.IDs())
	}
}

func TestRegistry(t *testing.T) {
	fin := New(financeParams(), &stubSearcher{}, &stubGenerator{})
	reg := NewRegistry(fin)

	if _, err := reg.Get(models.DomainFinance); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := reg.Get(models.DomainLegal); !apperr.Is(err, apperr.CodeAgentNotFound) {
		t.Errorf("expected AgentNotFound, got %v", err)
	}
}
