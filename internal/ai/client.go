// file: internal/ai/client.go
// version: 2.0.0
// guid: 9a0b1c2d-3e4f-5a6b-7c8d-9e0f1a2b3c4d

package ai

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps an OpenAI-compatible chat endpoint (OpenAI, LiteLLM,
// Ollama). A nil *Client means AI assistance is disabled; every method is
// nil-safe and degrades to "no AI contribution".
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a client for the given endpoint. Returns nil when
// baseURL is empty (AI disabled). Endpoints that don't check keys still
// require a non-empty one, so a placeholder is substituted.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		return nil
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	if apiKey == "" {
		apiKey = "not-needed"
	}
	api := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &Client{api: &api, model: model}
}

// Enabled reports whether AI calls will actually be made.
func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}
