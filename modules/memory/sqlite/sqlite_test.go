package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()

	h, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func appendTurns(t *testing.T, h *HistoryStore, sessionID string, contents ...string) {
	t.Helper()
	for i, c := range contents {
		role := provider.MessageRoleUser
		if i%2 == 1 {
			role = provider.MessageRoleAssistant
		}
		if err := h.AppendMessage(context.Background(), sessionID, role, c); err != nil {
			t.Fatalf("AppendMessage(%q): %v", c, err)
		}
	}
}

func TestHistoryAppendAndRecent(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	appendTurns(t, h, "s1", "hello", "hi there")

	turns, err := h.RecentMessages(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != provider.MessageRoleUser || turns[0].Content != "hello" {
		t.Errorf("turns[0] = %+v, want user/hello", turns[0])
	}
	if turns[1].Role != provider.MessageRoleAssistant || turns[1].Content != "hi there" {
		t.Errorf("turns[1] = %+v, want assistant/hi there", turns[1])
	}
	if turns[0].Timestamp.IsZero() || turns[1].Timestamp.Before(turns[0].Timestamp) {
		t.Errorf("timestamps not chronological: %v, %v", turns[0].Timestamp, turns[1].Timestamp)
	}
}

func TestHistoryRecentReturnsNewest(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	appendTurns(t, h, "s1", "m1", "m2", "m3", "m4", "m5")

	turns, err := h.RecentMessages(context.Background(), "s1", 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "m4" || turns[1].Content != "m5" {
		t.Errorf("RecentMessages(2) = %+v, want m4, m5", turns)
	}

	if turns, _ := h.RecentMessages(context.Background(), "s1", 0); turns != nil {
		t.Errorf("RecentMessages(0) = %+v, want nil", turns)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()

	turns, err := h.RecentMessages(ctx, "missing", 10)
	if err != nil || len(turns) != 0 {
		t.Errorf("RecentMessages(missing) = %v, %v; want empty", turns, err)
	}
	n, err := h.MessageCount(ctx, "missing")
	if err != nil || n != 0 {
		t.Errorf("MessageCount(missing) = %d, %v; want 0", n, err)
	}
	if err := h.ClearSession(ctx, "missing"); err != nil {
		t.Errorf("ClearSession(missing): %v", err)
	}
}

func TestHistoryClearIsolatesSessions(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()
	appendTurns(t, h, "s1", "s1-msg")
	appendTurns(t, h, "s2", "s2-msg")

	if err := h.ClearSession(ctx, "s1"); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}

	n1, _ := h.MessageCount(ctx, "s1")
	n2, _ := h.MessageCount(ctx, "s2")
	if n1 != 0 || n2 != 1 {
		t.Errorf("after clear: s1=%d s2=%d, want 0 and 1", n1, n2)
	}

	// Sequence numbers restart after a clear.
	appendTurns(t, h, "s1", "again")
	if turns, _ := h.RecentMessages(ctx, "s1", 5); len(turns) != 1 || turns[0].Content != "again" {
		t.Errorf("after re-append: %+v", turns)
	}
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	ctx := context.Background()

	h, err := Open(ctx, Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	appendTurns(t, h, "s1", "remember me")
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h, err = Open(ctx, Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = h.Close() }()

	turns, err := h.RecentMessages(ctx, "s1", 10)
	if err != nil || len(turns) != 1 || turns[0].Content != "remember me" {
		t.Errorf("after reopen: %+v, %v", turns, err)
	}
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.AppendMessage(ctx, "s1", provider.MessageRoleUser, fmt.Sprintf("message %d", i)); err != nil {
				t.Errorf("concurrent append: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := h.MessageCount(ctx, "s1")
	if err != nil {
		t.Fatalf("MessageCount: %v", err)
	}
	if n != 10 {
		t.Errorf("count = %d, want 10", n)
	}
}

func TestWALMode(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)

	var mode string
	if err := h.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()

	if err := migrate(ctx, h.db); err != nil {
		t.Fatalf("second migration: %v", err)
	}
	appendTurns(t, h, "s1", "test")
}

func TestPing(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()

	if err := h.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Ping(ctx); err == nil {
		t.Error("Ping after Close succeeded, want error")
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing path", cfg: Config{}},
		{name: "negative busy timeout", cfg: Config{Path: filepath.Join(t.TempDir(), "x.db"), BusyTimeout: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(context.Background(), tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWindowManagerOverSQLite(t *testing.T) {
	t.Parallel()

	h := newTestStore(t)
	ctx := context.Background()
	w := memory.NewWindowManager(h, memory.WindowConfig{Size: 3})

	for _, c := range []string{"a", "b", "c", "d"} {
		if err := w.Append(ctx, "s1", memory.UserTurn(c)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	window, err := w.Window(ctx, "s1")
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(window) != 3 || window[0].Content != "b" || window[2].Content != "d" {
		t.Errorf("Window = %+v, want b, c, d", window)
	}
}
