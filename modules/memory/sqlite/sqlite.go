// Package sqlite implements a durable conversation history store on
// SQLite. It uses modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/recall/internal/memory"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Compile-time interface guard.
var _ memory.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements memory.HistoryStore backed by a SQLite database.
// Turns are never trimmed; the window manager bounds what is read back.
type HistoryStore struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// Open opens or creates the database described by cfg and migrates its
// schema. The caller must Close the returned store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*HistoryStore, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite history store opened",
		"path", cfg.Path,
		"wal", cfg.walEnabled(),
	)

	return &HistoryStore{db: db, config: cfg, logger: logger}, nil
}

// Ping verifies the database is reachable.
func (h *HistoryStore) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (h *HistoryStore) Close() error {
	h.logger.Info("sqlite history store closing")
	return h.db.Close()
}
