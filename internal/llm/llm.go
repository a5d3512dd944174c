// Package llm abstracts the external embedding and completion services so
// the pipeline can run against deterministic stubs in tests.
package llm

import "context"

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionRequest is a single completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the model output.
type Completion struct {
	Text       string
	StopReason string
}

// Completer runs a bounded language-model completion. Implementations must
// honor the context deadline.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
