package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient calls Gemini through the Google GenAI SDK
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini API client. An empty baseURL uses the
// public endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Complete sends one generate content request
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, generateConfig(req))
	if err != nil {
		return "", &CallError{Provider: "gemini", Operation: req.Operation, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &CallError{Provider: "gemini", Operation: req.Operation, Err: ErrEmptyResponse}
	}
	return text, nil
}

func generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}
