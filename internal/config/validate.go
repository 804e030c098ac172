package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/flemzord/recall/internal/embedding"
	"github.com/flemzord/recall/internal/memory"
)

var (
	logLevels          = []string{"debug", "info", "warn", "error"}
	generationBackends = []string{GenerationMock, GenerationOpenAI, GenerationOllama}
	historyBackends    = []string{HistoryMemory, HistorySQLite, HistoryRedis}
)

// Validate checks that the configuration is well-formed.
// It returns all validation errors joined together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (expected \"1\")", cfg.Version))
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		errs = append(errs, fmt.Errorf("config: log.level %q must be one of %v", cfg.Log.Level, logLevels))
	}

	errs = append(errs, validateAssistant(&cfg.Assistant)...)
	errs = append(errs, validateMemory(&cfg.Memory)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateEmbedding(&cfg.Embedding)...)

	if r := cfg.Telemetry.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.tracing.sample_rate must be in [0, 1], got %g", r))
	}

	return errors.Join(errs...)
}

func validateAssistant(a *AssistantConfig) []error {
	var errs []error
	if !slices.Contains(generationBackends, a.Provider) {
		errs = append(errs, fmt.Errorf("config: assistant.provider %q must be one of %v", a.Provider, generationBackends))
	}
	if a.Provider == GenerationOpenAI && a.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("config: assistant.openai.api_key is required for the openai provider"))
	}
	return errs
}

func validateMemory(m *MemoryConfig) []error {
	var errs []error
	if m.MaxConversationHistory < 1 {
		errs = append(errs, fmt.Errorf("config: memory.max_conversation_history must be positive, got %d", m.MaxConversationHistory))
	}
	if m.MinSimilarity < -1 || m.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("config: memory.semantic_memory_min_similarity must be in [-1, 1], got %g", m.MinSimilarity))
	}
	if m.MaxRetrieved < 1 {
		errs = append(errs, fmt.Errorf("config: memory.semantic_memory_max_retrieved must be positive, got %d", m.MaxRetrieved))
	}
	if c := m.Extractor.MinConfidence; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("config: memory.extractor.min_confidence must be in [0, 1], got %g", c))
	}
	if err := memory.ValidatePatterns(m.Extractor.Patterns); err != nil {
		errs = append(errs, fmt.Errorf("config: memory.extractor.patterns: %w", err))
	}
	if m.VectorStore.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("config: memory.vector_store.max_size must be positive, got %d", m.VectorStore.MaxSize))
	}
	return errs
}

func validateHistory(h *HistoryConfig) []error {
	var errs []error
	switch h.Backend {
	case HistoryMemory:
	case HistorySQLite:
		if h.SQLite.Path == "" {
			errs = append(errs, errors.New("config: history.sqlite.path is required for the sqlite backend"))
		}
		if h.SQLite.BusyTimeout < 0 {
			errs = append(errs, fmt.Errorf("config: history.sqlite.busy_timeout must be non-negative, got %d", h.SQLite.BusyTimeout))
		}
	case HistoryRedis:
		if h.Redis.Addr == "" {
			errs = append(errs, errors.New("config: history.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: history.backend %q must be one of %v", h.Backend, historyBackends))
	}
	return errs
}

func validateEmbedding(e *EmbeddingConfig) []error {
	var errs []error
	if !slices.Contains(embedding.Providers, e.Provider) {
		errs = append(errs, fmt.Errorf("config: embedding.provider %q must be one of %v", e.Provider, embedding.Providers))
	}
	if e.Provider == embedding.ProviderOpenAI && e.APIKey == "" {
		errs = append(errs, errors.New("config: embedding.api_key is required for the openai provider"))
	}
	if e.Dimension < 1 {
		errs = append(errs, fmt.Errorf("config: embedding.dimension must be positive, got %d", e.Dimension))
	}
	if e.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("config: embedding.cache_size must be non-negative, got %d", e.CacheSize))
	}
	if e.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("config: embedding.rate_limit must be non-negative, got %g", e.RateLimit))
	}
	if e.Burst < 0 || e.BatchConcurrency < 0 {
		errs = append(errs, errors.New("config: embedding.burst and embedding.batch_concurrency must be non-negative"))
	}
	return errs
}
