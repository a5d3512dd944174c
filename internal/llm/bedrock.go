package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/povarna/corporate-assistant/internal/apperr"
)

const anthropicVersion = "bedrock-2023-05-31"

// BedrockClient serves completions through Anthropic Claude and embeddings
// through Amazon Titan, both on AWS Bedrock.
type BedrockClient struct {
	client        *bedrockruntime.Client
	claudeModelID string
	titanModelID  string
}

// NewBedrockClient builds a Bedrock-backed client for the given region.
func NewBedrockClient(ctx context.Context, region, claudeModelID, titanModelID string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockClient{
		client:        bedrockruntime.NewFromConfig(cfg),
		claudeModelID: claudeModelID,
		titanModelID:  titanModelID,
	}, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeMessageRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	System           string          `json:"system,omitempty"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *BedrockClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	payload := claudeMessageRequest{
		AnthropicVersion: anthropicVersion,
		System:           req.System,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal claude request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.claudeModelID,
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return Completion{}, mapBedrockError("claude invocation failed", err)
	}

	var response claudeMessageResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return Completion{}, apperr.Wrap(apperr.CodeServiceUnavailable, "failed to unmarshal claude response", err)
	}

	var content string
	if len(response.Content) > 0 {
		content = response.Content[0].Text
	}

	return Completion{
		Text:       strings.TrimSpace(content),
		StopReason: response.StopReason,
	}, nil
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *BedrockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.CodeInvalidQuery, "empty text provided for embedding")
	}

	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal titan request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.titanModelID,
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, mapBedrockError("titan invocation failed", err)
	}

	var response titanEmbedResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "failed to unmarshal titan response", err)
	}
	if len(response.Embedding) == 0 {
		return nil, apperr.New(apperr.CodeServiceUnavailable, "titan response contained no embedding")
	}
	return response.Embedding, nil
}

func mapBedrockError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeoutExceeded, msg, err)
	}
	if strings.Contains(err.Error(), "ThrottlingException") {
		return apperr.Wrap(apperr.CodeRateLimited, msg, err)
	}
	return apperr.Wrap(apperr.CodeServiceUnavailable, msg, err)
}
