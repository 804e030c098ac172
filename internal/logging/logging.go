// Package logging builds the process logger: a slog text handler at the
// configured level that never prints configured secrets.
package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// New returns a logger writing text records to w at level (debug, info,
// warn or error), redacting secrets.
func New(w io.Writer, level string, secrets ...string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: level: %w", err)
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(NewRedactingHandler(inner, NewRedactor(secrets...))), nil
}
