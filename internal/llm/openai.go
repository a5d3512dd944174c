package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/povarna/corporate-assistant/internal/apperr"
)

// OpenAIClient serves embeddings and chat completions through the OpenAI
// API. It satisfies both Embedder and Completer.
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// NewOpenAIClient builds a client for the given models.
func NewOpenAIClient(apiKey, embeddingModel, chatModel string) *OpenAIClient {
	return &OpenAIClient{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.CodeInvalidQuery, "empty text provided for embedding")
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, mapOpenAIError("embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperr.New(apperr.CodeServiceUnavailable, "embedding response contained no data")
	}

	log.Debug().Int("text_len", len(text)).Int("dim", len(resp.Data[0].Embedding)).Msg("Generated embedding")
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return Completion{}, mapOpenAIError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, apperr.New(apperr.CodeServiceUnavailable, "completion response contained no choices")
	}

	choice := resp.Choices[0]
	return Completion{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
	}, nil
}

// mapOpenAIError translates transport failures into the error taxonomy.
func mapOpenAIError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeoutExceeded, msg, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return apperr.Wrap(apperr.CodeRateLimited, msg, err)
		case apiErr.HTTPStatusCode >= 500:
			return apperr.Wrap(apperr.CodeServiceUnavailable, msg, err)
		}
	}
	return apperr.Wrap(apperr.CodeServiceUnavailable, msg, err)
}
