package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrDisabled is returned by the "none" provider
	ErrDisabled = errors.New("llm provider disabled")

	// ErrBudgetExceeded is returned when the call budget denies a call
	ErrBudgetExceeded = errors.New("llm call budget exceeded")

	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("empty llm response")
)

// CallError is a failed call to the model provider
type CallError struct {
	Provider   string
	Operation  string
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s call to %s failed with status %d: %v", e.Operation, e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s call to %s failed: %v", e.Operation, e.Provider, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ParseError is a response that could not be decoded into the expected shape
type ParseError struct {
	Operation string
	Raw       string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm %s response could not be parsed: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err is a call or parse failure. Both trigger the
// deterministic fallback of the caller.
func IsFailure(err error) bool {
	var callErr *CallError
	var parseErr *ParseError
	return errors.As(err, &callErr) || errors.As(err, &parseErr)
}
