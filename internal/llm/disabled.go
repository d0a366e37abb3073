package llm

import "context"

// Disabled is the "none" provider. Every call fails, so callers always take
// their deterministic path.
type Disabled struct{}

// Complete always returns ErrDisabled
func (Disabled) Complete(ctx context.Context, req Request) (string, error) {
	return "", &CallError{Provider: "none", Operation: req.Operation, Err: ErrDisabled}
}
