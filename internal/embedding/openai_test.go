package embedding_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flemzord/recall/internal/embedding"
	"github.com/flemzord/recall/internal/memory"
)

type openAIRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

type openAIItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// vectorFor is a tiny deterministic stand-in for a model.
func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

// newOpenAIServer answers with items in reverse order to prove the client
// reorders by index.
func newOpenAIServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		items := make([]openAIItem, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			items = append(items, openAIItem{Index: i, Embedding: vectorFor(req.Input[i])})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": items, "model": req.Model})
	}))
}

func newTestOpenAI(t *testing.T, baseURL, key string) *embedding.OpenAI {
	t.Helper()
	e, err := embedding.NewOpenAI(embedding.Config{
		BaseURL:   baseURL,
		APIKey:    key,
		Dimension: 2,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	return e
}

func TestOpenAI_EmbedBatchSingleRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	e := newTestOpenAI(t, srv.URL, "sk-test")
	texts := []string{"a", "bbb", "cc"}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), vecs[i], "index %d", i)
	}
	assert.Equal(t, int32(1), calls.Load(), "batch must be one request")
}

func TestOpenAI_Embed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	vec, err := newTestOpenAI(t, srv.URL, "sk-test").Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vectorFor("hello"), vec)
}

func TestOpenAI_StatusError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	_, err := newTestOpenAI(t, srv.URL, "sk-wrong").Embed(context.Background(), "hello")
	require.Error(t, err)

	var statusErr *embedding.StatusError
	require.True(t, errors.As(err, &statusErr), "want StatusError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, embedding.ProviderOpenAI, statusErr.Provider)
	assert.Contains(t, statusErr.Body, "bad key")
}

func TestOpenAI_DimensionMismatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	e, err := embedding.NewOpenAI(embedding.Config{BaseURL: srv.URL, APIKey: "sk-test", Dimension: 3})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, memory.ErrDimensionMismatch)
}

func TestOpenAI_MalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := newTestOpenAI(t, srv.URL, "sk-test").Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, embedding.ErrMalformedResponse)
}

func TestOpenAI_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := embedding.NewOpenAI(embedding.Config{})
	assert.ErrorIs(t, err, embedding.ErrMissingAPIKey)
}

func TestOpenAI_EmptyBatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	vecs, err := newTestOpenAI(t, srv.URL, "sk-test").EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, calls.Load())
}

func TestOpenAI_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newOpenAIServer(t, &calls)
	defer srv.Close()

	e, err := embedding.NewOpenAI(embedding.Config{
		BaseURL:   srv.URL,
		APIKey:    "sk-test",
		Dimension: 2,
		RateLimit: 0.001, // one token, then effectively never
		Burst:     1,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = e.Embed(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int32(1), calls.Load())
}
