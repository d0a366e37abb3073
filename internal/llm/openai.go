package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client. An empty baseURL uses the public API.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Complete sends one chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	fail := func(status int, err error) (string, error) {
		return "", &CallError{Provider: "openai", Operation: req.Operation, StatusCode: status, Err: err}
	}

	if c.apiKey == "" {
		return fail(0, fmt.Errorf("API key not configured"))
	}

	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	body := openAIRequest{
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxOutputTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.User})

	data, err := json.Marshal(body)
	if err != nil {
		return fail(0, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	if parsed.Error != nil {
		return fail(resp.StatusCode, fmt.Errorf("API error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return fail(resp.StatusCode, ErrEmptyResponse)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
