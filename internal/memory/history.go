// Package memory provides the two memory tiers behind a conversational
// assistant: a bounded per-session conversation window and a long-term
// semantic memory of facts extracted from dialogue, stored as vectors and
// retrieved by similarity. In-memory implementations live here; durable
// history backends live under modules/memory.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/recall/internal/provider"
)

// ErrInvalidRole indicates a turn whose role is neither user nor assistant.
var ErrInvalidRole = errors.New("memory: invalid turn role")

// Turn is a single message in a conversation session.
type Turn struct {
	Role      provider.MessageRole
	Content   string
	Timestamp time.Time
}

// UserTurn builds a user-originated turn stamped with the current time.
func UserTurn(content string) Turn {
	return Turn{Role: provider.MessageRoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantTurn builds an assistant-originated turn stamped with the current time.
func AssistantTurn(content string) Turn {
	return Turn{Role: provider.MessageRoleAssistant, Content: content, Timestamp: time.Now()}
}

// validRole reports whether r belongs to the closed set of conversation roles.
func validRole(r provider.MessageRole) bool {
	return r == provider.MessageRoleUser || r == provider.MessageRoleAssistant
}

// HistoryStore is the persistence contract for conversation sessions.
// Implementations must be safe for concurrent use. An unknown session is
// empty state, never an error.
type HistoryStore interface {
	// AppendMessage records a turn at the end of the session.
	AppendMessage(ctx context.Context, sessionID string, role provider.MessageRole, content string) error

	// RecentMessages returns at most limit of the most recent turns,
	// oldest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// MessageCount returns the number of turns ever recorded for the session.
	MessageCount(ctx context.Context, sessionID string) (int, error)

	// ClearSession removes every turn of the session.
	ClearSession(ctx context.Context, sessionID string) error
}
