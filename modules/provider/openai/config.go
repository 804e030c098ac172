package openai

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the configuration for the OpenAI chat provider. Any API
// implementing the chat completions interface works through BaseURL.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.Temperature == nil {
		t := 0.7
		c.Temperature = &t
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.openai: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("provider.openai: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.APIKey == "" {
		return fmt.Errorf("provider.openai: api_key is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider.openai: max_tokens must not be negative")
	}
	return nil
}
