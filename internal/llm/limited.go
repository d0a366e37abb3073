package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxzi/recruitflow/internal/metrics"
	"github.com/foxzi/recruitflow/internal/ratelimit"
)

// Budget decides whether a call may be made
type Budget interface {
	Allow(ctx context.Context, req *ratelimit.Request) (*ratelimit.Result, error)
}

// LimitedClient refuses calls once the caller's budget is spent. A refused
// call is a *CallError, so callers fall back exactly as on a provider
// failure.
type LimitedClient struct {
	next   Client
	budget Budget
	logger *slog.Logger
}

// WithBudget wraps next with budget checks
func WithBudget(next Client, budget Budget, logger *slog.Logger) *LimitedClient {
	return &LimitedClient{
		next:   next,
		budget: budget,
		logger: logger.With("component", "llm_budget"),
	}
}

// Complete checks the budget for the identity attached to ctx
func (c *LimitedClient) Complete(ctx context.Context, req Request) (string, error) {
	rl := ratelimit.RequestFromContext(ctx)
	rl.Operation = req.Operation

	result, err := c.budget.Allow(ctx, &rl)
	if err != nil {
		return "", &CallError{Provider: "budget", Operation: req.Operation, Err: fmt.Errorf("budget check failed: %w", err)}
	}
	if !result.Allowed {
		metrics.IncRateLimitExceeded(string(result.DeniedBy))
		c.logger.Warn("llm call denied",
			"operation", req.Operation,
			"level", result.DeniedBy,
			"key", result.DeniedKey,
			"retry_after", result.RetryAfter,
		)
		return "", &CallError{Provider: "budget", Operation: req.Operation, Err: ErrBudgetExceeded}
	}

	return c.next.Complete(ctx, req)
}
