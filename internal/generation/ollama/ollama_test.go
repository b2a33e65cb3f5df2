package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(url string) *Generator {
	return NewGenerator(Config{
		BaseURL: url + "/",
		Model:   "qwen2.5:3b",
		Logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
}

func TestGenerate_SendsSingleUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		assert.Equal(t, "qwen2.5:3b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "full prompt", req.Messages[0].Content)

		_, _ = fmt.Fprint(w, `{"message":{"role":"assistant","content":"  The member said yes.\n"},"done":true}`)
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Generate(context.Background(), "full prompt")
	require.NoError(t, err)
	assert.Equal(t, "The member said yes.", out)
}

func TestGenerate_MissingContentIsEmpty(t *testing.T) {
	for _, body := range []string{`{"done":true}`, `{"message":{"role":"assistant"},"done":true}`, `{"message":{"content":null}}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, body)
		}))

		out, err := newTestGenerator(server.URL).Generate(context.Background(), "p")
		server.Close()
		require.NoError(t, err, body)
		assert.Equal(t, "", out, body)
	}
}

func TestGenerate_BadStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestGenerator(url).Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "failed to call generation endpoint")
}
