package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/recall/internal/assistant"
	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/embedding"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
	"github.com/flemzord/recall/internal/telemetry"
	"github.com/flemzord/recall/modules/memory/redis"
	"github.com/flemzord/recall/modules/memory/sqlite"
	"github.com/flemzord/recall/modules/provider/ollama"
	"github.com/flemzord/recall/modules/provider/openai"
)

// app holds the wired components of a running assistant.
type app struct {
	responder *assistant.Responder
	memory    *memory.Manager
	store     *memory.InMemoryVectorStore
	registry  *prometheus.Registry
	logger    *slog.Logger

	// closers run in reverse order on Close.
	closers []func(context.Context) error
}

// newApp builds every component described by cfg. On error, anything
// already started is closed.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	tracing, err := telemetry.InitTracing(ctx, cfg.Telemetry.Tracing, version)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, tracing.Shutdown)
	tracer := tracing.Tracer()

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := memory.NewMetrics(a.registry)

	history, err := a.openHistory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	window := memory.NewWindowManager(history, memory.WindowConfig{
		Size:    cfg.Memory.MaxConversationHistory,
		Metrics: metrics,
		Logger:  logger,
	})

	embCfg := cfg.Embedding.Embedding()
	embCfg.Tracer = tracer
	embedder, err := embedding.New(embCfg)
	if err != nil {
		return nil, err
	}

	a.store = memory.NewInMemoryVectorStore(memory.VectorStoreConfig{
		Dimension: embedder.Dimensions(),
		MaxSize:   cfg.Memory.VectorStore.MaxSize,
		Metrics:   metrics,
	})

	extractor, err := memory.NewPatternExtractor(extractorConfig(cfg, metrics))
	if err != nil {
		return nil, err
	}

	a.memory = memory.NewManager(a.store, embedder, extractor, memory.ManagerConfig{
		MinSimilarity: cfg.Memory.MinSimilarity,
		MaxRetrieved:  cfg.Memory.MaxRetrieved,
		Metrics:       metrics,
		Logger:        logger,
		Tracer:        tracer,
	})

	generator, err := newGenerator(cfg.Assistant, logger)
	if err != nil {
		return nil, err
	}

	responderCfg := assistant.Config{
		Window:       window,
		Provider:     generator,
		Memory:       a.memory,
		ProviderName: cfg.Assistant.Provider,
		Personality:  cfg.Assistant.Personality,
		Logger:       logger,
		Tracer:       tracer,
	}
	if path := cfg.Assistant.PersonalityFile; path != "" {
		responderCfg.PersonalitySource = assistant.NewPersonalityFile(path, cfg.Assistant.Personality)
	}
	a.responder, err = assistant.New(responderCfg)
	if err != nil {
		return nil, err
	}

	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		srv := telemetry.NewServer(telemetry.ServerConfig{Addr: addr}, a.registry, a.store, logger)
		if p, ok := history.(telemetry.Pinger); ok {
			srv.AddCheck("history", p)
		}
		if err := srv.Start(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, srv.Stop)
	}

	logger.Info("recall ready",
		"generation", cfg.Assistant.Provider,
		"embedding", cfg.Embedding.Provider,
		"history", cfg.History.Backend,
		"tracing", tracing.Enabled(),
	)
	return a, nil
}

func (a *app) openHistory(ctx context.Context, cfg *config.Config) (memory.HistoryStore, error) {
	switch cfg.History.Backend {
	case config.HistorySQLite:
		h, err := sqlite.Open(ctx, cfg.History.SQLite, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return h.Close() })
		return h, nil
	case config.HistoryRedis:
		h, err := redis.New(ctx, cfg.History.Redis, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return h.Close() })
		return h, nil
	case config.HistoryMemory:
		return memory.NewInMemoryHistoryStore(cfg.Memory.MaxConversationHistory), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func newGenerator(cfg config.AssistantConfig, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case config.GenerationOpenAI:
		return openai.New(cfg.OpenAI, openai.WithLogger(logger))
	case config.GenerationOllama:
		return ollama.New(cfg.Ollama, nil, logger), nil
	case config.GenerationMock:
		return provider.Canned{}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func extractorConfig(cfg *config.Config, metrics *memory.Metrics) memory.ExtractorConfig {
	return memory.ExtractorConfig{
		MinConfidence: cfg.Memory.Extractor.MinConfidence,
		Patterns:      cfg.Memory.Extractor.Patterns,
		StrongPhrases: cfg.Memory.Extractor.StrongPhrases,
		Metrics:       metrics,
	}
}

// Close releases every component in reverse start order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
