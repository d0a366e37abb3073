package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```json{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

var testSchema = MustSchema(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"count": {"type": "integer", "minimum": 0}
	}
}`)

func TestDecode(t *testing.T) {
	var out struct {
		Message string `json:"message"`
		Count   int    `json:"count"`
	}

	err := Decode(OpClassify, "```json\n{\"message\":\"hi\",\"count\":2}\n```", testSchema, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Message)
	assert.Equal(t, 2, out.Count)
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"prose", "Sure! Here is your campaign."},
		{"schema violation", `{"count": -1}`},
		{"truncated", `{"message": "hi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			err := Decode(OpGenerate, tt.raw, testSchema, &out)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "got %v", err)
			assert.Equal(t, OpGenerate, parseErr.Operation)
			assert.True(t, IsFailure(err))
		})
	}
}
