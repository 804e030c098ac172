package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/recall/internal/provider"
)

// sessionData holds the retained turns and lifetime count of a session.
type sessionData struct {
	turns []Turn
	total int
}

// InMemoryHistoryStore is the volatile HistoryStore. When a cap is set,
// each session keeps only its most recent turns and older ones are
// discarded.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	limit    int
}

// NewInMemoryHistoryStore creates an empty store retaining at most limit
// turns per session. A limit of zero or less retains everything.
func NewInMemoryHistoryStore(limit int) *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		sessions: make(map[string]*sessionData),
		limit:    limit,
	}
}

// Compile-time interface check.
var _ HistoryStore = (*InMemoryHistoryStore)(nil)

func (s *InMemoryHistoryStore) getOrCreate(sessionID string) *sessionData {
	sd, ok := s.sessions[sessionID]
	if !ok {
		sd = &sessionData{}
		s.sessions[sessionID] = sd
	}
	return sd
}

// AppendMessage adds a turn and trims the session to the retention cap.
func (s *InMemoryHistoryStore) AppendMessage(_ context.Context, sessionID string, role provider.MessageRole, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd := s.getOrCreate(sessionID)
	sd.turns = append(sd.turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
	sd.total++

	if s.limit > 0 && len(sd.turns) > s.limit {
		// Copy so the dropped prefix can be collected.
		kept := make([]Turn, s.limit)
		copy(kept, sd.turns[len(sd.turns)-s.limit:])
		sd.turns = kept
	}
	return nil
}

// RecentMessages returns the limit most recent turns, oldest first.
func (s *InMemoryHistoryStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	turns := sd.turns
	if limit < len(turns) {
		turns = turns[len(turns)-limit:]
	}
	result := make([]Turn, len(turns))
	copy(result, turns)
	return result, nil
}

// MessageCount returns the number of turns ever appended to the session,
// including those discarded by the retention cap.
func (s *InMemoryHistoryStore) MessageCount(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	return sd.total, nil
}

// ClearSession forgets the session entirely.
func (s *InMemoryHistoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
