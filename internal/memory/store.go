package memory

import (
	"context"
	"errors"
	"time"
)

// Validation errors returned by VectorStore.Insert and Search.
var (
	ErrDimensionMismatch = errors.New("memory: embedding dimension mismatch")
	ErrEmptyText         = errors.New("memory: empty memory text")
)

// MemoryEntry is a long-term fact owned by a single user.
type MemoryEntry struct {
	ID           string
	Text         string
	Embedding    []float32
	UserID       string
	Metadata     map[string]any
	CreatedAt    time.Time
	AccessCount  int
	LastAccessed time.Time
}

// ScoredEntry pairs a search hit with its cosine similarity to the query.
type ScoredEntry struct {
	Entry MemoryEntry
	Score float64
}

// VectorStore holds memory entries partitioned by user and answers
// similarity queries over a single user's partition.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Insert stores a new entry and returns its id. When the store is at
	// capacity the oldest, least-accessed entry is evicted first.
	Insert(ctx context.Context, text string, embedding []float32, userID string, metadata map[string]any) (string, error)

	// Search returns the user's entries whose similarity to query is at
	// least minSimilarity, best first, at most topK. Returned entries have
	// their access statistics updated.
	Search(ctx context.Context, query []float32, userID string, topK int, minSimilarity float64) ([]ScoredEntry, error)

	// Get returns the entry with the given id.
	Get(ctx context.Context, id string) (MemoryEntry, bool)

	// Delete removes an entry and reports whether it existed.
	Delete(ctx context.Context, id string) bool

	// UserMemories returns every entry owned by the user in insertion order.
	UserMemories(ctx context.Context, userID string) []MemoryEntry

	// ClearUser removes every entry owned by the user and returns how many were removed.
	ClearUser(ctx context.Context, userID string) int

	// Len returns the total number of stored entries.
	Len() int
}
