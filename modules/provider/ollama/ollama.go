// Package ollama provides a text generation provider backed by a local
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/flemzord/recall/internal/provider"
)

const maxResponseSize = 10 * 1024 * 1024

// Config holds the configuration for the Ollama provider.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "llama3"
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}

// Provider calls the Ollama generate endpoint with the conversation
// flattened into a single prompt.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Provider. A nil client uses one built from Config.Timeout.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Provider {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{config: cfg, client: client, logger: logger}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// formatPrompt renders the request as "Role: content" lines ending with an
// open assistant turn.
func formatPrompt(req provider.CompletionRequest) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "System: %s\n\n", req.System)
	}
	for _, m := range req.Messages {
		role := string(m.Role)
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("Assistant:")
	return b.String()
}

// Complete generates a reply.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body, err := json.Marshal(generateRequest{Model: p.config.Model, Prompt: formatPrompt(req)})
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return provider.CompletionResponse{}, err
		}
		return provider.CompletionResponse{}, fmt.Errorf("%w: ollama: %w", provider.ErrProviderDown, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("provider.ollama: generation failed", "status", resp.StatusCode)
		if resp.StatusCode >= 500 {
			return provider.CompletionResponse{}, fmt.Errorf("%w: ollama: HTTP %d: %s", provider.ErrProviderDown, resp.StatusCode, data)
		}
		return provider.CompletionResponse{}, fmt.Errorf("ollama: HTTP %d: %s", resp.StatusCode, data)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("ollama: unmarshal response: %w", err)
	}
	if gr.Response == "" {
		return provider.CompletionResponse{}, fmt.Errorf("ollama: %w", provider.ErrEmptyResponse)
	}

	finish := provider.FinishReasonStop
	if gr.DoneReason == "length" {
		finish = provider.FinishReasonLength
	}
	return provider.CompletionResponse{
		Content:      gr.Response,
		FinishReason: finish,
		Usage: provider.TokenUsage{
			PromptTokens:     gr.PromptEvalCount,
			CompletionTokens: gr.EvalCount,
			TotalTokens:      gr.PromptEvalCount + gr.EvalCount,
		},
	}, nil
}

// ModelName returns the configured model.
func (p *Provider) ModelName() string { return p.config.Model }

var _ provider.Provider = (*Provider)(nil)
