package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/foxzi/recruitflow/internal/metrics"
)

const tracerName = "github.com/foxzi/recruitflow/internal/llm"

// InstrumentedClient wraps a client with tracing, metrics and logging
type InstrumentedClient struct {
	next     Client
	provider string
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Instrument wraps next. The global tracer provider is used, so spans are
// dropped unless tracing is configured.
func Instrument(next Client, provider string, logger *slog.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		next:     next,
		provider: provider,
		tracer:   otel.Tracer(tracerName),
		logger:   logger.With("component", "llm", "provider", provider),
	}
}

// Complete forwards the call and records its outcome
func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm."+req.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", c.provider),
			attribute.String("llm.model", req.Model),
			attribute.String("llm.operation", req.Operation),
			attribute.Int("llm.prompt_chars", len(req.System)+len(req.User)),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("llm call failed",
			"operation", req.Operation,
			"model", req.Model,
			"duration", elapsed,
			"error", err,
		)
	} else {
		span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
		c.logger.Debug("llm call completed",
			"operation", req.Operation,
			"model", req.Model,
			"duration", elapsed,
			"response_chars", len(text),
		)
	}
	metrics.ObserveLLMCall(req.Operation, c.provider, status, elapsed)

	return text, err
}
