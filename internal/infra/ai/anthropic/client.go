package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domai "github.com/gridwatch/capri/internal/domain/ai"
)

const maxTokens = 4096

const defaultModel = anthropic.Model("claude-haiku-4-5")

type Client struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewClient(apiKey, model string) *Client {
	cli := anthropic.NewClient(option.WithAPIKey(apiKey))
	m := defaultModel
	if model != "" {
		m = anthropic.Model(model)
	}
	return &Client{client: &cli, model: m}
}

// Model reports the model identifier requests are sent to.
func (c *Client) Model() string { return string(c.model) }

// Complete sends one prompt and returns the first text-typed content
// block of the reply. A reply without one is a failure.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("anthropic message request: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", domai.ErrNoTextContent
}
