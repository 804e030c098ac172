package sqlite

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

// AppendMessage adds a turn at the end of the session.
func (h *HistoryStore) AppendMessage(ctx context.Context, sessionID string, role provider.MessageRole, content string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, seq, role, content, created_at)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM messages WHERE session_id = ?), 0) + 1, ?, ?, ?)`,
		sessionID, sessionID, string(role), content, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append message: %w", err)
	}
	return nil
}

// RecentMessages returns the limit most recent turns, oldest first.
func (h *HistoryStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []memory.Turn
	for rows.Next() {
		var (
			role    string
			content string
			created int64
		)
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		turns = append(turns, memory.Turn{
			Role:      provider.MessageRole(role),
			Content:   content,
			Timestamp: time.Unix(0, created),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent messages rows: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(turns)
	return turns, nil
}

// MessageCount returns the number of turns stored for a session.
func (h *HistoryStore) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return count, nil
}

// ClearSession removes every turn of the session.
func (h *HistoryStore) ClearSession(ctx context.Context, sessionID string) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("sqlite: clear session: %w", err)
	}
	return nil
}
