package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL))
}

func writeMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-haiku-4-5",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                120,
			"output_tokens":               40,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     100,
		},
	})
}

func TestSDKClient_Complete(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeMessage(w, `{"relevance": 0.9}`)
	}))
	defer ts.Close()

	temp := 0.2
	resp, err := newTestClient(ts.URL).Complete(context.Background(), Request{
		Model:       "claude-haiku-4-5",
		MaxTokens:   512,
		System:      "You judge prospect fit.",
		User:        "Judge this",
		CacheTTL:    DefaultCacheTTL,
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, `{"relevance": 0.9}`, resp.Text)
	assert.Equal(t, int64(100), resp.Usage.CacheReadTokens)

	assert.Equal(t, "claude-haiku-4-5", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	cc, ok := system[0].(map[string]any)["cache_control"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ephemeral", cc["type"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestSDKClient_Complete_Error(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), Request{
		Model:     "claude-haiku-4-5",
		MaxTokens: 64,
		User:      "Hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, 1, calls, "sdk retries are disabled")
}
