package gemini

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

	"github.com/sells-group/listing-extract/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient(context.Background(), "test-key", ts.URL)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestGenerateText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent"), r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, mustMarshal(t, body["contents"]), "Here is a dataset:")

		writeJSON(w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "  [{\"Job Title\":\"Engineer\"}]\n"}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{
				"promptTokenCount":     12,
				"candidatesTokenCount": 8,
				"totalTokenCount":      20,
			},
		})
	})

	resp, err := c.GenerateText(context.Background(), GenerateRequest{
		Model:  "gemini-1.5-flash",
		Prompt: "Here is a dataset:\n title\n   Eng\nReturn JSON.",
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"Job Title":"Engineer"}]`, resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, int32(12), resp.Usage.PromptTokens)
	assert.Equal(t, int32(20), resp.Usage.TotalTokens)
}

func TestGenerateText_EmptyCandidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"candidates": []map[string]any{{"finishReason": "SAFETY"}},
		})
	})

	_, err := c.GenerateText(context.Background(), GenerateRequest{Model: "gemini-1.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerateText_RateLimitedIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{
				"code":    429,
				"message": "Resource has been exhausted",
				"status":  "RESOURCE_EXHAUSTED",
			},
		})
	})

	_, err := c.GenerateText(context.Background(), GenerateRequest{Model: "gemini-1.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
	assert.True(t, resilience.IsTransient(err))
}

func TestGenerateText_BadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    400,
				"message": "API key not valid",
				"status":  "INVALID_ARGUMENT",
			},
		})
	})

	_, err := c.GenerateText(context.Background(), GenerateRequest{Model: "gemini-1.5-flash", Prompt: "x"})
	require.Error(t, err)

	var te *resilience.TransientError
	assert.False(t, errors.As(err, &te))
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewClient(context.Background(), "", "")
	assert.Error(t, err)
}

func TestTokenUsage_LogDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { TokenUsage{TotalTokens: 3}.Log("gemini-1.5-flash") })
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
