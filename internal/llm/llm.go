// Package llm wraps the Anthropic API behind a small Client interface so the
// review pipeline can be driven by a stub in tests.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

// Response is the text result of one model call.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
}

// Success reports whether the model produced any content.
func (r Response) Success() bool {
	return r.Content != ""
}

// Client generates free-form text completions.
type Client interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (Response, error)
}

// AnthropicClient implements Client using the Anthropic API.
type AnthropicClient struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropicClient creates a client with the given API key and model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Generate sends one prompt and returns the model's text response.
func (c *AnthropicClient) Generate(ctx context.Context, prompt, systemPrompt string) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return Response{
		Content:    text,
		Model:      string(msg.Model),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
