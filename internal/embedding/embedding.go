// Package embedding provides the text embedding backends used by the
// semantic memory engine: a deterministic mock, OpenAI and Ollama, plus
// an LRU cache that can wrap any of them.
package embedding

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/recall/internal/memory"
)

// Provider names accepted by New.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Providers lists every supported backend.
var Providers = []string{ProviderMock, ProviderOpenAI, ProviderOllama}

const (
	defaultTimeout          = 30 * time.Second
	defaultBatchConcurrency = 4
)

var (
	// ErrUnknownProvider is returned by New for a name outside Providers.
	ErrUnknownProvider = errors.New("embedding: unknown provider")

	// ErrMissingAPIKey is returned when a backend that needs a key has none.
	ErrMissingAPIKey = errors.New("embedding: api key is required")

	// ErrMalformedResponse is returned when a backend answers with the
	// wrong number of vectors.
	ErrMalformedResponse = errors.New("embedding: malformed response")
)

// Config selects and configures a backend.
type Config struct {
	Provider  string
	Dimension int
	Model     string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration

	// CacheSize enables an LRU cache of that many texts. Zero disables it.
	CacheSize int

	// RateLimit caps remote requests per second. Zero disables throttling.
	RateLimit float64
	Burst     int

	// BatchConcurrency bounds in-flight requests when a backend has no
	// native batch endpoint.
	BatchConcurrency int

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

func (c *Config) defaults() {
	if c.Dimension <= 0 {
		c.Dimension = memory.DefaultDimension
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = defaultBatchConcurrency
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// New builds the embedder named by cfg.Provider, wrapped in a cache when
// cfg.CacheSize is positive.
func New(cfg Config) (memory.Embedder, error) {
	cfg.defaults()

	var (
		e   memory.Embedder
		err error
	)
	switch cfg.Provider {
	case "", ProviderMock:
		e = NewMock(cfg.Dimension)
	case ProviderOpenAI:
		e, err = NewOpenAI(cfg)
	case ProviderOllama:
		e, err = NewOllama(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}

// checkDimension verifies a backend honoured the configured dimension.
func checkDimension(provider string, vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("embedding: %s: got %d dimensions, want %d: %w",
			provider, len(vec), want, memory.ErrDimensionMismatch)
	}
	return nil
}
