package adjudicate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "test-model", 5*time.Second)
	require.NoError(t, err)
	c.apiURL = srv.URL
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "model", time.Second)
	assert.Error(t, err)

	_, err = NewClient("key", "", time.Second)
	assert.Error(t, err)

	c, err := NewClient("key", "model", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCompleteConcatenatesTextBlocks(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "judge this", req.Messages[0].Content)

		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{
				{Type: "text", Text: "part one "},
				{Type: "tool_use"},
				{Type: "text", Text: "part two"},
			},
		})
	})

	got, err := c.Complete(context.Background(), Request{Prompt: "judge this"})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", got)
}

func TestCompleteRateLimited(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, ClassRateLimit, Classify(err))
}

func TestCompleteAuthError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication error")
}

func TestCompleteServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestValidate(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{{Type: "text", Text: "Hi"}},
		})
	})
	assert.NoError(t, c.Validate(context.Background()))

	bad := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	assert.Error(t, bad.Validate(context.Background()))
}
