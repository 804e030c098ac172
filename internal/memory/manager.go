package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Retrieval defaults.
const (
	DefaultMinSimilarity = 0.3
	DefaultMaxRetrieved  = 5
)

// sourceSnippetLength caps the provenance snippet stored with each memory.
const sourceSnippetLength = 100

const tracerName = "github.com/flemzord/recall/internal/memory"

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// MinSimilarity is the lowest cosine score a retrieved memory may have.
	// Zero means DefaultMinSimilarity; pass a negative floor to accept
	// orthogonal matches.
	MinSimilarity float64

	// MaxRetrieved caps retrieval when the caller passes no limit.
	// Zero means DefaultMaxRetrieved.
	MaxRetrieved int

	Metrics *Metrics
	Logger  *slog.Logger

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// DefaultManagerConfig returns the retrieval defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MinSimilarity: DefaultMinSimilarity,
		MaxRetrieved:  DefaultMaxRetrieved,
	}
}

// Manager ties extraction, embedding and the vector store together. It is
// the only memory component the generation step talks to.
type Manager struct {
	store     VectorStore
	embedder  Embedder
	extractor FactExtractor

	minSimilarity float64
	maxRetrieved  int
	metrics       *Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewManager creates a Manager.
func NewManager(store VectorStore, embedder Embedder, extractor FactExtractor, cfg ManagerConfig) *Manager {
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.MaxRetrieved <= 0 {
		cfg.MaxRetrieved = DefaultMaxRetrieved
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if extractor == nil {
		extractor = NopExtractor{}
	}
	return &Manager{
		store:         store,
		embedder:      embedder,
		extractor:     extractor,
		minSimilarity: cfg.MinSimilarity,
		maxRetrieved:  cfg.MaxRetrieved,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		tracer:        cfg.Tracer,
	}
}

// StoreMemory embeds text and inserts it for the user. Embedding and
// insertion failures are returned to the caller.
func (m *Manager) StoreMemory(ctx context.Context, text, userID string, metadata map[string]any) (string, error) {
	ctx, span := m.tracer.Start(ctx, "memory.StoreMemory",
		trace.WithAttributes(attribute.String("memory.user_id", userID)))
	defer span.End()

	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		err = fmt.Errorf("memory: embed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return "", err
	}

	id, err := m.store.Insert(ctx, text, vec, userID, metadata)
	if err != nil {
		err = fmt.Errorf("memory: insert: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return "", err
	}

	span.SetAttributes(attribute.String("memory.id", id))
	m.logger.Info("memory: stored semantic memory", "memory_id", id, "user_id", userID)
	return id, nil
}

// RetrieveRelevant returns the user's memories closest to query, best
// first. A topK of zero or less uses the configured maximum. Failures are
// logged and produce an empty result so retrieval never blocks a turn.
func (m *Manager) RetrieveRelevant(ctx context.Context, query, userID string, topK int) []MemoryEntry {
	if topK <= 0 {
		topK = m.maxRetrieved
	}

	ctx, span := m.tracer.Start(ctx, "memory.RetrieveRelevant",
		trace.WithAttributes(
			attribute.String("memory.user_id", userID),
			attribute.Int("memory.top_k", topK),
		))
	defer span.End()

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.retrievalFailed(span, "embed", userID, err)
		return nil
	}

	hits, err := m.store.Search(ctx, vec, userID, topK, m.minSimilarity)
	if err != nil {
		m.retrievalFailed(span, "search", userID, err)
		return nil
	}

	entries := make([]MemoryEntry, len(hits))
	for i, h := range hits {
		entries[i] = h.Entry
	}

	span.SetAttributes(attribute.Int("memory.hits", len(entries)))
	m.logger.Debug("memory: retrieved memories", "user_id", userID, "count", len(entries))
	return entries
}

func (m *Manager) retrievalFailed(span trace.Span, stage, userID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	m.metrics.incRetrievalFailures()
	m.logger.Warn("memory: retrieval degraded to empty result",
		"stage", stage, "user_id", userID, "error", err)
}

// ExtractAndStore extracts candidates from turns and stores those that
// clear the threshold. A failing candidate is logged and skipped; it
// never aborts the others. If ctx is cancelled part way, memories stored
// so far are kept. It returns the ids of the stored memories.
func (m *Manager) ExtractAndStore(ctx context.Context, turns []Turn, userID string) []string {
	ctx, span := m.tracer.Start(ctx, "memory.ExtractAndStore",
		trace.WithAttributes(attribute.String("memory.user_id", userID)))
	defer span.End()

	candidates := m.extractor.Extract(turns)

	var ids []string
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("memory: extraction interrupted",
				"user_id", userID, "stored", len(ids), "error", err)
			break
		}
		if !m.extractor.ShouldStore(c) {
			continue
		}

		metadata := maps.Clone(c.Metadata)
		if metadata == nil {
			metadata = make(map[string]any, 2)
		}
		metadata["confidence"] = c.Confidence
		metadata["source"] = truncateRunes(c.SourceMessage, sourceSnippetLength)

		id, err := m.StoreMemory(ctx, c.Text, userID, metadata)
		if err != nil {
			m.metrics.incStoreFailures()
			m.logger.Warn("memory: failed to store candidate",
				"user_id", userID, "error", err)
			continue
		}
		ids = append(ids, id)
	}

	span.SetAttributes(
		attribute.Int("memory.candidates", len(candidates)),
		attribute.Int("memory.stored", len(ids)),
	)
	if len(ids) > 0 {
		m.logger.Info("memory: extracted and stored memories", "user_id", userID, "count", len(ids))
	}
	return ids
}

// FormatMemoriesForPrompt renders entries for the system prompt.
func (m *Manager) FormatMemoriesForPrompt(entries []MemoryEntry) string {
	return FormatMemories(entries)
}

// ContextForQuery retrieves the user's relevant memories and renders them
// for the system prompt. It returns "" when nothing relevant is stored.
func (m *Manager) ContextForQuery(ctx context.Context, query, userID string) string {
	return FormatMemories(m.RetrieveRelevant(ctx, query, userID, 0))
}

// DeleteMemory removes a memory and reports whether it existed.
func (m *Manager) DeleteMemory(ctx context.Context, id string) bool {
	return m.store.Delete(ctx, id)
}

// UserMemories lists every memory of the user.
func (m *Manager) UserMemories(ctx context.Context, userID string) []MemoryEntry {
	return m.store.UserMemories(ctx, userID)
}

// ClearUserMemories forgets everything about the user.
func (m *Manager) ClearUserMemories(ctx context.Context, userID string) int {
	n := m.store.ClearUser(ctx, userID)
	m.logger.Info("memory: cleared user memories", "user_id", userID, "count", n)
	return n
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
