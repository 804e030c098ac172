package embedding

import (
	"context"
	"fmt"

	"github.com/flemzord/recall/internal/memory"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "text-embedding-3-small"
)

var _ memory.Embedder = (*OpenAI)(nil)

// OpenAI calls the OpenAI embeddings endpoint, which accepts a whole batch
// in one request.
type OpenAI struct {
	http      *httpClient
	model     string
	dimension int
}

type openAIRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAI creates an OpenAI embedder. An API key is required.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	cfg.defaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderOpenAI)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	return &OpenAI{
		http:      newHTTPClient(ProviderOpenAI, cfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

// Embed returns the vector for a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds every text in a single request. Results are ordered by
// the index the API reports, which matches input order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openAIResponse
	req := openAIRequest{Model: o.model, Input: texts, Dimensions: o.dimension}
	if err := o.http.post(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts",
			ErrMalformedResponse, ProviderOpenAI, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: %s returned bad index %d", ErrMalformedResponse, ProviderOpenAI, d.Index)
		}
		if err := checkDimension(ProviderOpenAI, d.Embedding, o.dimension); err != nil {
			return nil, err
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (o *OpenAI) Dimensions() int { return o.dimension }
