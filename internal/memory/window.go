package memory

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultWindowSize is the number of turns returned by a window read
// when no size is configured.
const DefaultWindowSize = 10

// WindowConfig configures a WindowManager.
type WindowConfig struct {
	// Size is the maximum number of turns in a window. Zero means DefaultWindowSize.
	Size int

	Metrics *Metrics
	Logger  *slog.Logger
}

// WindowManager keeps ordered per-session history and hands out the
// bounded window used for generation. Operations on the same session are
// serialized; different sessions never contend.
type WindowManager struct {
	store   HistoryStore
	size    int
	lanes   *laneLock
	metrics *Metrics
	logger  *slog.Logger
}

// NewWindowManager creates a WindowManager over the given history store.
func NewWindowManager(store HistoryStore, cfg WindowConfig) *WindowManager {
	if cfg.Size <= 0 {
		cfg.Size = DefaultWindowSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowManager{
		store:   store,
		size:    cfg.Size,
		lanes:   newLaneLock(),
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Size returns the configured window size.
func (w *WindowManager) Size() int { return w.size }

// Append records a turn at the end of the session.
func (w *WindowManager) Append(ctx context.Context, sessionID string, turn Turn) error {
	if !validRole(turn.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, turn.Role)
	}

	w.lanes.acquire(sessionID)
	defer w.lanes.release(sessionID)

	if err := w.store.AppendMessage(ctx, sessionID, turn.Role, turn.Content); err != nil {
		return fmt.Errorf("memory: append turn: %w", err)
	}
	w.metrics.incWindowAppends()
	w.logger.Debug("memory: turn appended", "session_id", sessionID, "role", turn.Role)
	return nil
}

// Window returns the most recent turns of the session, oldest first and
// never more than the configured size. An unknown session yields an
// empty window.
func (w *WindowManager) Window(ctx context.Context, sessionID string) ([]Turn, error) {
	w.lanes.acquire(sessionID)
	defer w.lanes.release(sessionID)

	turns, err := w.store.RecentMessages(ctx, sessionID, w.size)
	if err != nil {
		return nil, fmt.Errorf("memory: read window: %w", err)
	}
	if len(turns) > w.size {
		turns = turns[len(turns)-w.size:]
	}
	return turns, nil
}

// Count returns the number of turns ever recorded for the session.
func (w *WindowManager) Count(ctx context.Context, sessionID string) (int, error) {
	w.lanes.acquire(sessionID)
	defer w.lanes.release(sessionID)

	n, err := w.store.MessageCount(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("memory: count turns: %w", err)
	}
	return n, nil
}

// Clear removes the session's history.
func (w *WindowManager) Clear(ctx context.Context, sessionID string) error {
	w.lanes.acquire(sessionID)
	defer w.lanes.release(sessionID)

	if err := w.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("memory: clear session: %w", err)
	}
	w.logger.Info("memory: session cleared", "session_id", sessionID)
	return nil
}

// Exists reports whether the session has any recorded turns.
func (w *WindowManager) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := w.Count(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
