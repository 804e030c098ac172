package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Vector store defaults.
const (
	DefaultDimension = 384
	DefaultMaxSize   = 1000
)

// VectorStoreConfig configures an InMemoryVectorStore.
type VectorStoreConfig struct {
	// Dimension every embedding must have. Zero means DefaultDimension.
	Dimension int

	// MaxSize is the global capacity across all users. Zero means DefaultMaxSize.
	MaxSize int

	Metrics *Metrics

	// Now and NewID are overridable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// storedEntry is an entry plus the bookkeeping the store needs.
type storedEntry struct {
	MemoryEntry
	norm float64
	seq  uint64
}

// InMemoryVectorStore is a brute-force cosine VectorStore guarded by a
// single mutex. Search takes the exclusive lock because hits mutate
// access statistics.
type InMemoryVectorStore struct {
	mu      sync.Mutex
	entries map[string]*storedEntry
	byUser  map[string][]string // user id → entry ids in insertion order
	seq     uint64

	dim     int
	maxSize int
	metrics *Metrics
	now     func() time.Time
	newID   func() string
}

// NewInMemoryVectorStore creates an empty store.
func NewInMemoryVectorStore(cfg VectorStoreConfig) *InMemoryVectorStore {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &InMemoryVectorStore{
		entries: make(map[string]*storedEntry),
		byUser:  make(map[string][]string),
		dim:     cfg.Dimension,
		maxSize: cfg.MaxSize,
		metrics: cfg.Metrics,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
}

// Compile-time interface check.
var _ VectorStore = (*InMemoryVectorStore)(nil)

// Dimension returns the embedding dimension the store accepts.
func (s *InMemoryVectorStore) Dimension() int { return s.dim }

// Insert stores a new entry. At capacity, exactly one existing entry is
// evicted before the new one is added, so Insert never fails for lack of room.
func (s *InMemoryVectorStore) Insert(_ context.Context, text string, embedding []float32, userID string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if len(embedding) != s.dim {
		return "", fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxSize {
		s.evictLocked()
	}

	id := s.newID()
	now := s.now()
	s.seq++
	s.entries[id] = &storedEntry{
		MemoryEntry: MemoryEntry{
			ID:           id,
			Text:         text,
			Embedding:    slices.Clone(embedding),
			UserID:       userID,
			Metadata:     maps.Clone(metadata),
			CreatedAt:    now,
			LastAccessed: now,
		},
		norm: vectorNorm(embedding),
		seq:  s.seq,
	}
	s.byUser[userID] = append(s.byUser[userID], id)

	s.metrics.incInserts()
	s.metrics.setStoreSize(len(s.entries))
	return id, nil
}

// evictLocked removes the global minimum by (CreatedAt, AccessCount),
// falling back to insertion order. Eviction ignores ownership, so one
// prolific user can push out another user's memories.
func (s *InMemoryVectorStore) evictLocked() {
	var victim *storedEntry
	for _, e := range s.entries {
		if victim == nil || evictsBefore(e, victim) {
			victim = e
		}
	}
	if victim == nil {
		return
	}
	s.removeLocked(victim)
	s.metrics.incEvictions()
}

func evictsBefore(a, b *storedEntry) bool {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c < 0
	}
	if a.AccessCount != b.AccessCount {
		return a.AccessCount < b.AccessCount
	}
	return a.seq < b.seq
}

func (s *InMemoryVectorStore) removeLocked(e *storedEntry) {
	delete(s.entries, e.ID)
	ids := slices.DeleteFunc(s.byUser[e.UserID], func(id string) bool { return id == e.ID })
	if len(ids) == 0 {
		delete(s.byUser, e.UserID)
	} else {
		s.byUser[e.UserID] = ids
	}
}

// Search scores only the user's entries. A zero query vector yields no
// results, and entries with a zero embedding are skipped.
func (s *InMemoryVectorStore) Search(_ context.Context, query []float32, userID string, topK int, minSimilarity float64) ([]ScoredEntry, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	qnorm := vectorNorm(query)
	if qnorm == 0 {
		s.metrics.observeSearch(0)
		return nil, nil
	}

	type hit struct {
		entry *storedEntry
		score float64
	}
	var hits []hit
	for _, id := range s.byUser[userID] {
		e := s.entries[id]
		if e == nil || e.norm == 0 {
			continue
		}
		score := dot(query, e.Embedding) / (qnorm * e.norm)
		if score >= minSimilarity {
			hits = append(hits, hit{entry: e, score: score})
		}
	}

	// Stable sort keeps insertion order among equal scores.
	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	now := s.now()
	results := make([]ScoredEntry, len(hits))
	for i, h := range hits {
		h.entry.AccessCount++
		h.entry.LastAccessed = now
		results[i] = ScoredEntry{Entry: h.entry.snapshot(), Score: h.score}
	}

	s.metrics.observeSearch(len(results))
	return results, nil
}

// Get returns a copy of the entry with the given id.
func (s *InMemoryVectorStore) Get(_ context.Context, id string) (MemoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return MemoryEntry{}, false
	}
	return e.snapshot(), true
}

// Delete removes an entry from the store and its user's index.
func (s *InMemoryVectorStore) Delete(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.removeLocked(e)
	s.metrics.setStoreSize(len(s.entries))
	return true
}

// UserMemories returns copies of the user's entries in insertion order.
func (s *InMemoryVectorStore) UserMemories(_ context.Context, userID string) []MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	result := make([]MemoryEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			result = append(result, e.snapshot())
		}
	}
	return result
}

// ClearUser removes every entry owned by the user in one step.
func (s *InMemoryVectorStore) ClearUser(_ context.Context, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	for _, id := range ids {
		delete(s.entries, id)
	}
	delete(s.byUser, userID)
	s.metrics.setStoreSize(len(s.entries))
	return len(ids)
}

// Len returns the total number of stored entries.
func (s *InMemoryVectorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// snapshot returns a copy detached from the store's internal state.
func (e *storedEntry) snapshot() MemoryEntry {
	m := e.MemoryEntry
	m.Embedding = slices.Clone(e.Embedding)
	m.Metadata = maps.Clone(e.Metadata)
	return m
}
