// Package llm talks to the external language model that classifies
// conversation turns and writes campaign copy.
package llm

import (
	"context"
	"time"
)

// Operation labels used for tracing, metrics and call budgets
const (
	OpClassify    = "classify"
	OpGenerate    = "generate"
	OpPersonalize = "personalize"
)

// Request is a single completion call
type Request struct {
	Operation       string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	System          string
	User            string
}

// Client sends a request and returns the raw response text
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CallConfig holds per call-site model settings
type CallConfig struct {
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Request builds a request for this call site
func (c CallConfig) Request(operation, system, user string) Request {
	return Request{
		Operation:       operation,
		Model:           c.Model,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		Timeout:         c.Timeout,
		System:          system,
		User:            user,
	}
}

// withTimeout applies the request timeout unless the caller already set a
// tighter deadline
func withTimeout(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	if req.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, req.Timeout)
}

// ClientFunc adapts a function to Client
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
