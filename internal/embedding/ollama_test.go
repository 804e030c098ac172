package embedding_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flemzord/recall/internal/embedding"
)

func newOllamaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Prompt == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("model crashed"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vectorFor(req.Prompt)})
	}))
}

func TestOllama_Embed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	e, err := embedding.NewOllama(embedding.Config{BaseURL: srv.URL + "/", Dimension: 2})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("hello"), vec)
	assert.Equal(t, 2, e.Dimensions())
}

func TestOllama_EmbedBatchOnePerText(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	e, err := embedding.NewOllama(embedding.Config{BaseURL: srv.URL, Dimension: 2, BatchConcurrency: 2})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), vecs[i], "index %d", i)
	}
	assert.Equal(t, int32(len(texts)), calls.Load())
}

func TestOllama_ServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOllamaServer(t, &calls)
	defer srv.Close()

	e, err := embedding.NewOllama(embedding.Config{BaseURL: srv.URL, Dimension: 2})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"fine", "boom"})
	var statusErr *embedding.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "model crashed", statusErr.Body)
}
