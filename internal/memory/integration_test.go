package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/flemzord/recall/internal/embedding"
	"github.com/flemzord/recall/internal/memory"
)

// newMockManager wires the full pipeline around the deterministic mock
// embedder.
func newMockManager(t *testing.T) (*memory.Manager, *memory.InMemoryVectorStore) {
	t.Helper()

	embedder := embedding.NewMock(memory.DefaultDimension)
	store := memory.NewInMemoryVectorStore(memory.VectorStoreConfig{
		Dimension: embedder.Dimensions(),
		MaxSize:   memory.DefaultMaxSize,
	})
	extractor, err := memory.NewPatternExtractor(memory.ExtractorConfig{})
	if err != nil {
		t.Fatalf("NewPatternExtractor: %v", err)
	}
	return memory.NewManager(store, embedder, extractor, memory.DefaultManagerConfig()), store
}

func TestIntegration_ExtractStoreRetrieve(t *testing.T) {
	t.Parallel()

	m, store := newMockManager(t)
	ctx := context.Background()

	conversation := []memory.Turn{
		memory.UserTurn("Hi there! I like hiking on weekends."),
		memory.AssistantTurn("That sounds great, where do you usually go?"),
		memory.UserTurn("What time is it?"),
		memory.UserTurn("I'm allergic to peanuts, so keep that in mind"),
	}

	ids := m.ExtractAndStore(ctx, conversation, "alice")
	if len(ids) != 2 {
		t.Fatalf("ExtractAndStore stored %d memories, want 2", len(ids))
	}
	if store.Len() != 2 {
		t.Fatalf("store Len() = %d, want 2", store.Len())
	}

	// The mock embedder is deterministic, so querying with the exact stored
	// text finds it with similarity 1.
	got := m.RetrieveRelevant(ctx, "I like hiking on weekends", "alice", 5)
	if len(got) == 0 || got[0].Text != "I like hiking on weekends" {
		t.Fatalf("RetrieveRelevant = %+v, want the hiking memory first", got)
	}

	block := m.FormatMemoriesForPrompt(got)
	if !strings.HasPrefix(block, "\n\n## User Context & Preferences:\n1. I like hiking on weekends\n") {
		t.Errorf("formatted block = %q", block)
	}
	if !strings.HasSuffix(block, "\nUse this information to provide personalized responses.\n") {
		t.Errorf("formatted block missing footer: %q", block)
	}

	if got := m.RetrieveRelevant(ctx, "I like hiking on weekends", "bob", 5); len(got) != 0 {
		t.Errorf("bob retrieved %d of alice's memories", len(got))
	}
}

func TestIntegration_StoreThenSearchRoundTrip(t *testing.T) {
	t.Parallel()

	m, _ := newMockManager(t)
	ctx := context.Background()

	texts := []string{
		"My favorite color is green",
		"I work at a bakery downtown",
		"My goal is to run a marathon",
	}
	for _, text := range texts {
		if _, err := m.StoreMemory(ctx, text, "alice", nil); err != nil {
			t.Fatalf("StoreMemory(%q): %v", text, err)
		}
	}

	for _, text := range texts {
		got := m.RetrieveRelevant(ctx, text, "alice", 1)
		if len(got) != 1 || got[0].Text != text {
			t.Errorf("RetrieveRelevant(%q) = %+v, want the same text back", text, got)
		}
	}
}
