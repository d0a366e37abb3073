package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstrumentRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	fail := false
	next := ClientFunc(func(ctx context.Context, req Request) (string, error) {
		if fail {
			return "", &CallError{Provider: "test", Operation: req.Operation, Err: errors.New("boom")}
		}
		return `{"ok":true}`, nil
	})

	c := Instrument(next, "test", discardLogger())

	_, err := c.Complete(context.Background(), Request{Operation: OpClassify, Model: "m"})
	require.NoError(t, err)

	fail = true
	_, err = c.Complete(context.Background(), Request{Operation: OpGenerate, Model: "m"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "llm.classify", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "llm.generate", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
