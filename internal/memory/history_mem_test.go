package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

// Compile-time interface guard.
var _ memory.HistoryStore = (*memory.InMemoryHistoryStore)(nil)

func appendN(t *testing.T, store memory.HistoryStore, sessionID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		role := provider.MessageRoleUser
		if i%2 == 1 {
			role = provider.MessageRoleAssistant
		}
		if err := store.AppendMessage(ctx, sessionID, role, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("AppendMessage(%d): unexpected error: %v", i, err)
		}
	}
}

func TestInMemoryHistoryStore_RecentMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     int
		wantLen   int
		wantFirst string
	}{
		{"fewer than stored", 3, 3, "msg-2"},
		{"exactly stored", 5, 5, "msg-0"},
		{"more than stored", 10, 5, "msg-0"},
		{"zero", 0, 0, ""},
		{"negative", -1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := memory.NewInMemoryHistoryStore(0)
			appendN(t, store, "s1", 5)

			got, err := store.RecentMessages(context.Background(), "s1", tt.limit)
			if err != nil {
				t.Fatalf("RecentMessages: unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("RecentMessages(%d): got %d, want %d", tt.limit, len(got), tt.wantLen)
			}
			if tt.wantLen > 0 {
				if got[0].Content != tt.wantFirst {
					t.Errorf("first = %q, want %q", got[0].Content, tt.wantFirst)
				}
				if got[len(got)-1].Content != "msg-4" {
					t.Errorf("last = %q, want msg-4", got[len(got)-1].Content)
				}
			}
		})
	}
}

func TestInMemoryHistoryStore_UnknownSession(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore(10)
	ctx := context.Background()

	got, err := store.RecentMessages(ctx, "nope", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("RecentMessages(unknown) = %v, %v; want empty, nil", got, err)
	}
	n, err := store.MessageCount(ctx, "nope")
	if err != nil || n != 0 {
		t.Errorf("MessageCount(unknown) = %d, %v; want 0, nil", n, err)
	}
	if err := store.ClearSession(ctx, "nope"); err != nil {
		t.Errorf("ClearSession(unknown): unexpected error: %v", err)
	}
}

func TestInMemoryHistoryStore_RetentionCap(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore(3)
	ctx := context.Background()
	appendN(t, store, "s1", 7)

	got, err := store.RecentMessages(ctx, "s1", 100)
	if err != nil {
		t.Fatalf("RecentMessages: unexpected error: %v", err)
	}
	want := []string{"msg-4", "msg-5", "msg-6"}
	if len(got) != len(want) {
		t.Fatalf("retained %d turns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Content != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Content, want[i])
		}
	}

	n, _ := store.MessageCount(ctx, "s1")
	if n != 7 {
		t.Errorf("MessageCount = %d, want 7 (lifetime count)", n)
	}
}

func TestInMemoryHistoryStore_ReturnsCopy(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore(0)
	ctx := context.Background()
	appendN(t, store, "s1", 2)

	got, _ := store.RecentMessages(ctx, "s1", 2)
	got[0].Content = "mutated"

	again, _ := store.RecentMessages(ctx, "s1", 2)
	if again[0].Content != "msg-0" {
		t.Errorf("store mutated through returned slice: %q", again[0].Content)
	}
}

func TestInMemoryHistoryStore_ClearSession(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore(0)
	ctx := context.Background()
	appendN(t, store, "s1", 3)
	appendN(t, store, "s2", 2)

	if err := store.ClearSession(ctx, "s1"); err != nil {
		t.Fatalf("ClearSession: unexpected error: %v", err)
	}
	if n, _ := store.MessageCount(ctx, "s1"); n != 0 {
		t.Errorf("MessageCount(s1) = %d, want 0", n)
	}
	if n, _ := store.MessageCount(ctx, "s2"); n != 2 {
		t.Errorf("MessageCount(s2) = %d, want 2", n)
	}
}

func TestInMemoryHistoryStore_Concurrent(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryHistoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := range 10 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 50 {
				_ = store.AppendMessage(ctx, "shared", provider.MessageRoleUser, fmt.Sprintf("%d-%d", g, i))
				_, _ = store.RecentMessages(ctx, "shared", 5)
			}
		}(g)
	}
	wg.Wait()

	if n, _ := store.MessageCount(ctx, "shared"); n != 500 {
		t.Errorf("MessageCount = %d, want 500", n)
	}
}
