package llm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/recruitflow/internal/ratelimit"
)

type fakeBudget struct {
	allow bool
	seen  []ratelimit.Request
}

func (b *fakeBudget) Allow(ctx context.Context, req *ratelimit.Request) (*ratelimit.Result, error) {
	b.seen = append(b.seen, *req)
	if !b.allow {
		return &ratelimit.Result{DeniedBy: ratelimit.LevelUser, DeniedKey: "user:u1"}, nil
	}
	return &ratelimit.Result{Allowed: true}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLimitedClient(t *testing.T) {
	calls := 0
	next := ClientFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "{}", nil
	})

	budget := &fakeBudget{allow: true}
	c := WithBudget(next, budget, discardLogger())

	ctx := ratelimit.WithRequest(context.Background(), ratelimit.Request{UserID: "u1", ProjectID: "p1"})
	text, err := c.Complete(ctx, Request{Operation: OpGenerate})
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
	assert.Equal(t, 1, calls)

	require.Len(t, budget.seen, 1)
	assert.Equal(t, ratelimit.Request{UserID: "u1", ProjectID: "p1", Operation: OpGenerate}, budget.seen[0])

	budget.allow = false
	_, err = c.Complete(ctx, Request{Operation: OpGenerate})
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.True(t, IsFailure(err))
	assert.Equal(t, 1, calls, "denied call must not reach the provider")
}
