package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds a response body (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBody bounds the body excerpt kept in a StatusError.
const maxErrorBody = 512

const tracerName = "github.com/flemzord/recall/internal/embedding"

// StatusError reports a non-2xx answer from a remote backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("embedding: %s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// httpClient is the JSON-over-HTTP transport shared by remote backends.
type httpClient struct {
	provider string
	baseURL  string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter // nil when unthrottled
	tracer   trace.Tracer
}

func newHTTPClient(provider string, cfg Config) *httpClient {
	c := &httpClient{
		provider: provider,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		client:   cfg.HTTPClient,
		tracer:   cfg.Tracer,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return c
}

// post sends payload as JSON to path and decodes a 2xx answer into out.
// Every call is one HTTP request and takes one rate limiter token.
func (c *httpClient) post(ctx context.Context, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("embedding: %s: rate limit: %w", c.provider, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "embedding."+c.provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.path", path)))
	defer span.End()

	err := c.do(ctx, path, payload, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
	}
	return err
}

func (c *httpClient) do(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("embedding: %s: marshal request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("embedding: %s: create request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding: %s: request: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("embedding: %s: read response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(data)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return &StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: excerpt}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("embedding: %s: unmarshal response: %w", c.provider, err)
	}
	return nil
}
