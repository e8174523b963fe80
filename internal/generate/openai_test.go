package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leapstack-labs/genmigrate/internal/testutil"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Generate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "\n  SELECT 1;  \n"},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "secret", Temperature: 0.1}, testutil.NewTestLogger(t))
	out, err := c.Generate(context.Background(), Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1;", out)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "bad"}, nil)
	_, err := c.Generate(context.Background(), Request{System: "s", User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Equal(t, 1, calls, "no retries")
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil).Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestNew_WithoutKeyIsDisabled(t *testing.T) {
	g := New(Config{}, nil)
	_, err := g.Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrDisabled))

	_, ok := New(Config{APIKey: "k"}, nil).(*OpenAIClient)
	assert.True(t, ok)
}

func TestFunc(t *testing.T) {
	var g Generator = Func(func(_ context.Context, req Request) (string, error) {
		return req.System + "|" + req.User, nil
	})
	out, err := g.Generate(context.Background(), Request{System: "a", User: "b"})
	require.NoError(t, err)
	assert.Equal(t, "a|b", out)
}
