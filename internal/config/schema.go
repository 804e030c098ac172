package config

import (
	"time"

	"github.com/flemzord/recall/internal/embedding"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/telemetry"
	"github.com/flemzord/recall/modules/memory/redis"
	"github.com/flemzord/recall/modules/memory/sqlite"
	"github.com/flemzord/recall/modules/provider/ollama"
	"github.com/flemzord/recall/modules/provider/openai"
)

// Generation provider names.
const (
	GenerationMock   = "mock"
	GenerationOpenAI = "openai"
	GenerationOllama = "ollama"
)

// History backend names.
const (
	HistoryMemory = "memory"
	HistorySQLite = "sqlite"
	HistoryRedis  = "redis"
)

// Config is the top-level configuration structure.
type Config struct {
	Version   string          `yaml:"version"`
	Log       LogConfig       `yaml:"log"`
	Assistant AssistantConfig `yaml:"assistant"`
	Memory    MemoryConfig    `yaml:"memory"`
	History   HistoryConfig   `yaml:"history"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig selects the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AssistantConfig configures the generation side of a chat turn.
type AssistantConfig struct {
	Personality string `yaml:"personality"`

	// PersonalityFile, when set, is re-read on change and takes
	// precedence over Personality.
	PersonalityFile string `yaml:"personality_file"`

	// Provider is one of mock, openai or ollama.
	Provider string        `yaml:"provider"`
	OpenAI   openai.Config `yaml:"openai"`
	Ollama   ollama.Config `yaml:"ollama"`
}

// MemoryConfig configures both memory tiers.
type MemoryConfig struct {
	MaxConversationHistory int               `yaml:"max_conversation_history"`
	MinSimilarity          float64           `yaml:"semantic_memory_min_similarity"`
	MaxRetrieved           int               `yaml:"semantic_memory_max_retrieved"`
	Extractor              ExtractorConfig   `yaml:"extractor"`
	VectorStore            VectorStoreConfig `yaml:"vector_store"`
}

// ExtractorConfig overrides the fact extractor catalogue. Empty lists keep
// the built-in defaults.
type ExtractorConfig struct {
	MinConfidence float64          `yaml:"min_confidence"`
	Patterns      []memory.Pattern `yaml:"patterns"`
	StrongPhrases []string         `yaml:"strong_phrases"`
}

// VectorStoreConfig bounds the in-memory vector store.
type VectorStoreConfig struct {
	MaxSize int `yaml:"max_size"`
}

// HistoryConfig selects where conversation windows are persisted.
type HistoryConfig struct {
	Backend string        `yaml:"backend"`
	SQLite  sqlite.Config `yaml:"sqlite"`
	Redis   redis.Config  `yaml:"redis"`
}

// EmbeddingConfig mirrors embedding.Config in YAML form.
type EmbeddingConfig struct {
	Provider         string        `yaml:"provider"`
	Dimension        int           `yaml:"dimension"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	CacheSize        int           `yaml:"cache_size"`
	RateLimit        float64       `yaml:"rate_limit"`
	Burst            int           `yaml:"burst"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
}

// Embedding converts the section into the embedding package's Config.
func (c EmbeddingConfig) Embedding() embedding.Config {
	return embedding.Config{
		Provider:         c.Provider,
		Dimension:        c.Dimension,
		Model:            c.Model,
		BaseURL:          c.BaseURL,
		APIKey:           c.APIKey,
		Timeout:          c.Timeout,
		CacheSize:        c.CacheSize,
		RateLimit:        c.RateLimit,
		Burst:            c.Burst,
		BatchConcurrency: c.BatchConcurrency,
	}
}

// TelemetryConfig configures the metrics endpoint and trace export.
type TelemetryConfig struct {
	// MetricsAddr enables the /metrics and /healthz server when set.
	MetricsAddr string                  `yaml:"metrics_addr"`
	Tracing     telemetry.TracingConfig `yaml:"tracing"`
}

// Secrets lists the configured credentials so the logger can redact them.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{
		c.Assistant.OpenAI.APIKey,
		c.Embedding.APIKey,
		c.History.Redis.Password,
	} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Default returns a configuration that runs fully offline: canned replies,
// volatile history and mock embeddings.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields. A zero similarity threshold is
// treated as unset.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Assistant.Provider == "" {
		c.Assistant.Provider = GenerationMock
	}

	m := &c.Memory
	if m.MaxConversationHistory == 0 {
		m.MaxConversationHistory = memory.DefaultWindowSize
	}
	if m.MinSimilarity == 0 {
		m.MinSimilarity = memory.DefaultMinSimilarity
	}
	if m.MaxRetrieved == 0 {
		m.MaxRetrieved = memory.DefaultMaxRetrieved
	}
	if m.Extractor.MinConfidence == 0 {
		m.Extractor.MinConfidence = memory.DefaultMinConfidence
	}
	if m.VectorStore.MaxSize == 0 {
		m.VectorStore.MaxSize = memory.DefaultMaxSize
	}

	if c.History.Backend == "" {
		c.History.Backend = HistoryMemory
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = embedding.ProviderMock
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = memory.DefaultDimension
	}

	t := &c.Telemetry.Tracing
	def := telemetry.DefaultTracingConfig()
	if t.Endpoint == "" {
		t.Endpoint = def.Endpoint
	}
	if t.ServiceName == "" {
		t.ServiceName = def.ServiceName
	}
	if t.SampleRate == 0 {
		t.SampleRate = def.SampleRate
	}
}
