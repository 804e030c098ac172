package assistant

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// PersonalitySource supplies the base system prompt for each turn.
type PersonalitySource interface {
	Load() (string, error)
}

// PersonalityFile reads the personality prompt from a file and picks up
// edits without a restart. Each Load stats the file and re-reads it only
// when its size or modification time changed. A missing or blank file
// yields the fallback prompt.
type PersonalityFile struct {
	path     string
	fallback string

	mu      sync.RWMutex
	content string
	modTime time.Time
	size    int64
}

// NewPersonalityFile creates a loader for path. An empty fallback means
// DefaultPersonality.
func NewPersonalityFile(path, fallback string) *PersonalityFile {
	if fallback == "" {
		fallback = DefaultPersonality
	}
	return &PersonalityFile{path: path, fallback: fallback}
}

// Load returns the current prompt.
func (p *PersonalityFile) Load() (string, error) {
	info, err := os.Stat(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.store("", time.Time{}, 0)
		return p.fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("assistant: stat personality: %w", err)
	}

	p.mu.RLock()
	if p.content != "" && p.modTime.Equal(info.ModTime()) && p.size == info.Size() {
		cached := p.content
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.store("", time.Time{}, 0)
		return p.fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("assistant: read personality: %w", err)
	}

	content := strings.TrimSpace(string(data))
	p.store(content, info.ModTime(), info.Size())
	if content == "" {
		return p.fallback, nil
	}
	return content, nil
}

func (p *PersonalityFile) store(content string, modTime time.Time, size int64) {
	p.mu.Lock()
	p.content = content
	p.modTime = modTime
	p.size = size
	p.mu.Unlock()
}
