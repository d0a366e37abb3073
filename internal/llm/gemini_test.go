package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConfig(t *testing.T) {
	cfg := CallConfig{Model: "gemini-test", Temperature: 0.3, MaxOutputTokens: 700}

	gc := generateConfig(cfg.Request(OpGenerate, "system text", "user text"))
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.3, *gc.Temperature, 1e-6)
	assert.Equal(t, int32(700), gc.MaxOutputTokens)
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	require.NotNil(t, gc.SystemInstruction)
	require.Len(t, gc.SystemInstruction.Parts, 1)
	assert.Equal(t, "system text", gc.SystemInstruction.Parts[0].Text)

	gc = generateConfig(CallConfig{Model: "gemini-test"}.Request(OpGenerate, "", "user text"))
	assert.Nil(t, gc.SystemInstruction)
	assert.Zero(t, gc.MaxOutputTokens)
}

func TestGeminiClientComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" {\"ok\":true} "}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "secret", srv.URL)
	require.NoError(t, err)

	cfg := CallConfig{Model: "gemini-test", Temperature: 0.2}
	text, err := c.Complete(context.Background(), cfg.Request(OpClassify, "system text", "user text"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Contains(t, body, "contents")
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiClientErrors(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "secret", srv.URL)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CallConfig{Model: "gemini-test"}.Request(OpGenerate, "", "user text"))
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "gemini", callErr.Provider)
	assert.True(t, IsFailure(err))
}

var _ Client = (*GeminiClient)(nil)
