package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain object", `{"event": "The Masters", "picks": [{"player": "Scottie Scheffler"}]}`, false},
		{"fenced", "Here you go:\n```json\n{\"event\": \"The Masters\", \"picks\": []}\n```", false},
		{"optional present", `{"event": "x", "picks": [], "matchups": [], "summary": "ok"}`, false},
		{"optional null", `{"event": "x", "picks": [], "matchups": null}`, false},
		{"missing picks", `{"event": "The Masters"}`, true},
		{"picks wrong type", `{"event": "x", "picks": {"a": 1}}`, true},
		{"required null", `{"event": null, "picks": []}`, true},
		{"no json", `I cannot help with that.`, true},
		{"truncated", `{"event": "x", "picks": [`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := PicksSchema.Validate([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaMismatch))
				return
			}
			require.NoError(t, err)
			assert.True(t, json.Valid(out))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, string(ExtractJSON([]byte(`noise {"a":{"b":1}} trailing`))))
	assert.Nil(t, ExtractJSON([]byte(`} backwards {`)))
	assert.Nil(t, ExtractJSON(nil))
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestClaudeClient_Generate(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"event\": \"The Masters\","}, {"type": "text", "text": " \"picks\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer srv.Close()

	c := NewClaudeClient(ClaudeConfig{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL}, quietLogger())
	out, err := c.Generate(context.Background(), Prompt{
		System:      "You are a golf analyst.",
		Instruction: "Pick winners.",
		Payload:     map[string]string{"event": "The Masters"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event": "The Masters", "picks": []}`, string(out))

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "You are a golf analyst.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, `"event": "The Masters"`)
}

func TestClaudeClient_ErrorsTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"type": "api_error", "message": "overloaded"}}`))
	}))
	defer srv.Close()

	c := NewClaudeClient(ClaudeConfig{APIKey: "k", BaseURL: srv.URL}, quietLogger())
	for i := 0; i < 4; i++ {
		_, err := c.Generate(context.Background(), Prompt{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overloaded")
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.Generate(context.Background(), Prompt{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 4, calls)
}

func TestClaudeClient_NoKey(t *testing.T) {
	c := NewClaudeClient(ClaudeConfig{}, quietLogger())
	_, err := c.Generate(context.Background(), Prompt{})
	assert.Error(t, err)
}
