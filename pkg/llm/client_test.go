package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.LLMConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/",
		Model:       "test-model",
		MaxTokens:   100,
		Temperature: 0.2,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Dear Sir,\n\nPay up.  "}}]}`))
	})

	text, err := client.Complete(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, "Dear Sir,\n\nPay up.", text)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "usr"}, got.Messages[1])
	assert.Equal(t, 100, got.MaxTokens)
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := client.Complete(context.Background(), Prompt{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), Prompt{User: "x"})
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.LLMConfig{}, nil)
	assert.Error(t, err)

	_, err = Disabled{}.Complete(context.Background(), Prompt{})
	assert.True(t, errors.Is(err, ErrDisabled))
}
