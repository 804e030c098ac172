package memory

import "sync"

// laneLock serializes work per session id while letting different
// sessions proceed in parallel. The outer mutex only guards the lane map;
// each lane carries its own mutex.
type laneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane counts the goroutines holding or waiting on it so the entry can be
// dropped once nobody references it.
type lane struct {
	mu   sync.Mutex
	refs int
}

func newLaneLock() *laneLock {
	return &laneLock{lanes: make(map[string]*lane)}
}

// acquire locks the lane for sessionID, creating it on first use.
// The caller must call release with the same id.
func (l *laneLock) acquire(sessionID string) {
	l.mu.Lock()
	ln, ok := l.lanes[sessionID]
	if !ok {
		ln = &lane{}
		l.lanes[sessionID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the map mutex so other sessions are not blocked.
	ln.mu.Lock()
}

// release unlocks the lane and drops it when no other goroutine holds a reference.
func (l *laneLock) release(sessionID string) {
	l.mu.Lock()
	ln, ok := l.lanes[sessionID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, sessionID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// size returns the number of live lanes.
func (l *laneLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
