// Package redis implements a conversation history store on Redis. Each
// session is a list of JSON-encoded turns plus a lifetime counter.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

const defaultPrefix = "recall"

// Config holds the Redis history store configuration.
type Config struct {
	Addr     string `yaml:"addr"`     // Redis address (e.g., "localhost:6379")
	Password string `yaml:"password"` // Redis password
	DB       int    `yaml:"db"`       // Redis database number

	// Prefix namespaces every key. Defaults to "recall".
	Prefix string `yaml:"prefix"`

	// MaxMessages trims each session list to its newest entries. Zero
	// keeps everything.
	MaxMessages int64 `yaml:"max_messages"`

	// TTL expires idle sessions. Zero keeps them forever.
	TTL time.Duration `yaml:"ttl"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Compile-time interface guard.
var _ memory.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements memory.HistoryStore on a Redis client.
type HistoryStore struct {
	client goredis.UniversalClient
	config Config
	logger *slog.Logger
}

// storedTurn is the JSON form of a list entry.
type storedTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

// New connects to the configured server and verifies it answers PING.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*HistoryStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, cfg Config, logger *slog.Logger) *HistoryStore {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{client: client, config: cfg, logger: logger}
}

// Ping verifies the server still answers.
func (h *HistoryStore) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (h *HistoryStore) listKey(sessionID string) string {
	return h.config.Prefix + ":history:{" + sessionID + "}:turns"
}

func (h *HistoryStore) countKey(sessionID string) string {
	return h.config.Prefix + ":history:{" + sessionID + "}:count"
}

// AppendMessage pushes the turn and bumps the lifetime counter in one
// transaction.
func (h *HistoryStore) AppendMessage(ctx context.Context, sessionID string, role provider.MessageRole, content string) error {
	payload, err := json.Marshal(storedTurn{
		Role:      string(role),
		Content:   content,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("redis: marshal turn: %w", err)
	}

	list, count := h.listKey(sessionID), h.countKey(sessionID)
	_, err = h.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, list, payload)
		pipe.Incr(ctx, count)
		if h.config.MaxMessages > 0 {
			pipe.LTrim(ctx, list, -h.config.MaxMessages, -1)
		}
		if h.config.TTL > 0 {
			pipe.Expire(ctx, list, h.config.TTL)
			pipe.Expire(ctx, count, h.config.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: append message: %w", err)
	}
	return nil
}

// RecentMessages returns the limit most recent turns, oldest first.
func (h *HistoryStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := h.client.LRange(ctx, h.listKey(sessionID), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: recent messages: %w", err)
	}

	turns := make([]memory.Turn, 0, len(raw))
	for _, item := range raw {
		var st storedTurn
		if err := json.Unmarshal([]byte(item), &st); err != nil {
			return nil, fmt.Errorf("redis: unmarshal turn: %w", err)
		}
		turns = append(turns, memory.Turn{
			Role:      provider.MessageRole(st.Role),
			Content:   st.Content,
			Timestamp: time.Unix(0, st.Timestamp),
		})
	}
	return turns, nil
}

// MessageCount returns the number of turns ever appended to the session,
// including those trimmed by MaxMessages.
func (h *HistoryStore) MessageCount(ctx context.Context, sessionID string) (int, error) {
	n, err := h.client.Get(ctx, h.countKey(sessionID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: count messages: %w", err)
	}
	return n, nil
}

// ClearSession deletes the session list and its counter.
func (h *HistoryStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := h.client.Del(ctx, h.listKey(sessionID), h.countKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: clear session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (h *HistoryStore) Close() error {
	h.logger.Info("redis history store closing")
	return h.client.Close()
}
