package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/soramar/chatd/chatd/session/ports"
)

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			}},
		},
	}
}

func TestComplete_SendsHistoryAndMessage(t *testing.T) {
	var got struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "models/test-model:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(candidateResponse("Hello Ada!"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", 5*time.Second)
	history := []ports.Turn{
		{Role: ports.RoleUser, Text: "hi"},
		{Role: ports.RoleModel, Text: "hello"},
	}

	text, err := client.Complete(context.Background(), history, "how are you?")
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", text)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "hi", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
	assert.Equal(t, "how are you?", got.Contents[2].Parts[0].Text)
}

func TestComplete_JoinsMultipleParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]any{{"text": "part one "}, {"text": "part two"}},
				}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	text, err := client.Complete(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	_, err := client.Complete(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
}

func TestComplete_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	_, err := client.Complete(context.Background(), nil, "hi")
	assert.Error(t, err)
}

func TestComplete_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 5*time.Second)
	_, err := client.Complete(context.Background(), nil, "hi")
	assert.Error(t, err)
}

func TestComplete_TransportErrorOmitsAPIKey(t *testing.T) {
	// A refused connection makes the transport error carry the request URL;
	// the key must not be part of it.
	client := NewClient("http://127.0.0.1:1", "SUPER-SECRET-KEY", "m", time.Second)

	_, err := client.Complete(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPER-SECRET-KEY")
}

func TestComplete_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, "k", "m", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, nil, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
