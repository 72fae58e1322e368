// Package llm is the client for the OpenRouter-compatible chat-completions
// endpoint used for both statement extraction and the finance copilot.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrMissingAPIKey is returned before any network call when no credential is
// configured.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set")

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second
)

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	Messages    []Message
	Tools       []Tool
	Temperature float64
}

// Client issues chat completions.
type Client interface {
	ChatCompletion(ctx context.Context, req CompletionRequest) (*Message, error)
}

// OpenRouterClient talks to an OpenRouter-compatible HTTP endpoint. Calls are
// bounded by the HTTP client timeout; a timeout surfaces as an error the user
// can retry, never a crash.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	models     *ModelConfig
	httpClient *http.Client
}

// NewOpenRouterClient builds a client from the environment. The base URL can
// be overridden with OPENROUTER_BASE_URL (useful for tests).
func NewOpenRouterClient(models *ModelConfig) *OpenRouterClient {
	baseURL := os.Getenv("OPENROUTER_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenRouterClient{
		baseURL:    baseURL,
		apiKey:     os.Getenv("OPENROUTER_API_KEY"),
		models:     models,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type completionPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion implements Client. It resolves the model once per call and
// returns the single choice's message.
func (c *OpenRouterClient) ChatCompletion(ctx context.Context, req CompletionRequest) (*Message, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := c.models.Resolve(ctx)

	payload := completionPayload{
		Model:       model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
	}
	if len(req.Tools) > 0 {
		payload.ToolChoice = "auto"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ChatCompletion: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ChatCompletion: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ChatCompletion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ChatCompletion: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ChatCompletion: endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ChatCompletion: decode response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("ChatCompletion: endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return nil, fmt.Errorf("ChatCompletion: no message returned")
	}

	return parsed.Choices[0].Message, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
