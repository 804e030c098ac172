package embedding

import (
	"context"

	"github.com/flemzord/recall/internal/memory"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text"
)

var _ memory.Embedder = (*Ollama)(nil)

// Ollama calls a local Ollama server. Its embeddings endpoint takes one
// prompt per request, so batches fan out with bounded concurrency.
type Ollama struct {
	http        *httpClient
	model       string
	dimension   int
	concurrency int
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllama creates an Ollama embedder.
func NewOllama(cfg Config) (*Ollama, error) {
	cfg.defaults()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	return &Ollama{
		http:        newHTTPClient(ProviderOllama, cfg),
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		concurrency: cfg.BatchConcurrency,
	}, nil
}

// Embed returns the vector for text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaResponse
	if err := o.http.post(ctx, "/api/embeddings", ollamaRequest{Model: o.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if err := checkDimension(ProviderOllama, resp.Embedding, o.dimension); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// EmbedBatch embeds texts concurrently and returns them in input order.
func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return BatchEmbed(ctx, texts, o.concurrency, o.Embed)
}

// Dimensions returns the configured vector length.
func (o *Ollama) Dimensions() int { return o.dimension }
