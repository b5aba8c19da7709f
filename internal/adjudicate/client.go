package adjudicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clearsift/clearsift/internal/logging"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"

	defaultMaxTokens = 4096
)

// Request is one completion request to the adjudication endpoint.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
}

// Completer issues a single completion call. Retrying is the caller's
// concern: the Adjudicator owns the attempt budget so that decode failures
// and transport failures share it.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client talks to an Anthropic-style messages endpoint.
type Client struct {
	apiKey string
	model  string
	apiURL string
	httpc  *http.Client
}

// NewClient creates a Client. The API key must be non-empty; timeout bounds
// each individual call.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("adjudication API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("adjudication model is required")
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: anthropicAPIURL,
		httpc:  &http.Client{Timeout: timeout},
	}, nil
}

// Complete performs one call and returns the concatenated text blocks of
// the reply.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	start := time.Now()
	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("rate limit exceeded (429): %s", respBody)
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("authentication error (status %d): %s", httpResp.StatusCode, respBody)
	case httpResp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, respBody)
	}

	var result messagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	var content string
	for _, block := range result.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	logging.L().Debugw("adjudication call complete",
		"model", c.model,
		"duration", time.Since(start),
		"tokens", result.Usage.InputTokens+result.Usage.OutputTokens)

	return content, nil
}

// Validate makes a minimal call to confirm API access before a run starts.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.Complete(ctx, Request{Prompt: "Hello", MaxTokens: 10})
	if err != nil {
		return fmt.Errorf("API validation failed: %w", err)
	}
	return nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
