package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	var gotReq completionRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		fmt.Fprint(w, `{"choices":[{"message":{"content":"https://acme.example"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	answer, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "You answer with a single URL."},
		{Role: "user", Content: "What is the website of Acme?"},
	}, 100, false)

	require.NoError(t, err)
	assert.Equal(t, "https://acme.example", answer)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 100, gotReq.MaxTokens)
	assert.Len(t, gotReq.Messages, 2)
	assert.Nil(t, gotReq.ResponseFormat)
}

func TestComplete_JSONMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"title\":\"Acme\"}"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	answer, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "clean this up"}}, 100, true)

	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Acme"}`, answer)
}

func TestComplete_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 100, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestComplete_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 100, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "test-model")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 100, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
