package generator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/llm"
	"github.com/povarna/corporate-assistant/internal/models"
)

type stubCompleter struct {
	text     string
	err      error
	failures int
	delay    time.Duration
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return llm.Completion{}, ctx.Err()
		}
	}
	if s.failures > 0 {
		s.failures--
		return llm.Completion{}, s.err
	}
	return llm.Completion{Text: s.text, StopReason: "end_turn"}, nil
}

func retrieval() models.RetrievalResult {
	return models.RetrievalResult{
		{Chunk: models.DocumentChunk{ID: "fin-1", Domain: models.DomainFinance, Text: "budget is 500,000"}, Score: 0.9},
		{Chunk: models.DocumentChunk{ID: "fin-2", Domain: models.DomainFinance, Text: "rent due on the 25th"}, Score: 0.8},
	}
}

func testQuery() models.Query {
	return models.Query{Text: "What is the budget?", Domain: models.DomainFinance, UserID: "7", Timestamp: time.Now()}
}

func TestComplete_SourcesAreSubsetOfRetrieval(t *testing.T) {
	// The model cites one real id and fabricates another.
	completer := &stubCompleter{text: "The budget is 500,000 [fin-1]. See also [made-up-99]."}
	g := New(completer, 0.3, 1000, nil)

	answer, err := g.Complete(context.Background(), testQuery(), retrieval(), "persona", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if len(answer.Sources) != 1 || answer.Sources[0] != "fin-1" {
		t.Errorf("expected sources [fin-1], got %v", answer.Sources)
	}
}

func TestComplete_Timeout(t *testing.T) {
	completer := &stubCompleter{text: "late", delay: 500 * time.Millisecond}
	g := New(completer, 0.3, 1000, nil)

	start := time.Now()
	_, err := g.Complete(context.Background(), testQuery(), retrieval(), "persona", 100*time.Millisecond)
	elapsed := time.Since(start)

	if !apperr.Is(err, apperr.CodeTimeoutExceeded) {
		t.Fatalf("expected TimeoutExceeded, got %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("timeout took too long: %v", elapsed)
	}
	if completer.calls != 1 {
		t.Errorf("timeouts must not be retried, got %d calls", completer.calls)
	}
}

func TestComplete_RetriesTransientFailure(t *testing.T) {
	completer := &stubCompleter{
		text:     "The budget is 500,000 [fin-1].",
		err:      apperr.New(apperr.CodeServiceUnavailable, "503"),
		failures: 1,
	}
	g := New(completer, 0.3, 1000, nil)

	answer, err := g.Complete(context.Background(), testQuery(), retrieval(), "persona", 2*time.Second)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if completer.calls != 2 {
		t.Errorf("expected 2 calls, got %d", completer.calls)
	}
	if answer.Text == "" {
		t.Error("expected non-empty answer")
	}
}

func TestComplete_Deterministic(t *testing.T) {
	query := testQuery()
	ctxRes := retrieval()

	g := New(&stubCompleter{text: "Answer [fin-1] [fin-2]"}, 0.3, 1000, nil)
	first, err := g.Complete(context.Background(), query, ctxRes, "persona", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	g2 := New(&stubCompleter{text: "Answer [fin-1] [fin-2]"}, 0.3, 1000, nil)
	second, err := g2.Complete(context.Background(), query, ctxRes, "persona", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if first.Text != second.Text || first.Confidence != second.Confidence {
		t.Error("identical inputs against deterministic stubs must yield identical answers")
	}
	if len(first.Sources) != len(second.Sources) {
		t.Error("sources differ between identical runs")
	}
}

func TestBuildPrompt_TagsChunksWithIDs(t *testing.T) {
	prompt := buildPrompt("What is the budget?", retrieval())

	if !strings.Contains(prompt, "[fin-1]") || !strings.Contains(prompt, "[fin-2]") {
		t.Error("prompt missing source id tags")
	}
	if !strings.Contains(prompt, "What is the budget?") {
		t.Error("prompt missing the query text")
	}
}

func TestDefaultConfidence(t *testing.T) {
	cited := retrieval()
	got := DefaultConfidence("answer", cited)
	want := (0.9 + 0.8) / 2
	if got < want-0.0001 || got > want+0.0001 {
		t.Errorf("expected %v, got %v", want, got)
	}

	if DefaultConfidence("answer", nil) != 0 {
		t.Error("uncited answers should score zero confidence")
	}
}
