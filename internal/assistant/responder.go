// Package assistant runs a chat turn end to end: it records the turn in the
// conversation window, personalizes the system prompt with semantic
// memories, calls the generation provider and learns new facts from the
// user's message.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

// DefaultPersonality is the base system prompt.
const DefaultPersonality = "You are a helpful, friendly, and intelligent personal assistant."

const tracerName = "github.com/flemzord/recall/internal/assistant"

var (
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("assistant: empty message")

	// ErrMissingDependency is returned by New when a required component is nil.
	ErrMissingDependency = errors.New("assistant: missing dependency")
)

// Config groups the dependencies of a Responder.
type Config struct {
	Window   *memory.WindowManager
	Provider provider.Provider

	// Memory enables semantic personalization and fact learning. Nil
	// disables both.
	Memory *memory.Manager

	// ProviderName is reported in every Response. Defaults to the
	// provider's model name.
	ProviderName string

	// Personality defaults to DefaultPersonality.
	Personality string

	// PersonalitySource, when set, is consulted every turn and overrides
	// Personality. Load failures fall back to Personality.
	PersonalitySource PersonalitySource

	// NewSessionID generates ids for requests without one. Defaults to
	// uuid.NewString.
	NewSessionID func() string

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Request is one inbound user message.
type Request struct {
	Message   string
	SessionID string
	UserID    string
}

// Response is the outcome of a chat turn.
type Response struct {
	Reply     string
	SessionID string

	// MessageCount is the number of turns recorded for the session.
	MessageCount int

	Provider string

	// MemoriesStored counts facts learned from this turn.
	MemoriesStored int
}

// Responder executes chat turns.
type Responder struct {
	cfg Config
}

// New validates cfg and creates a Responder.
func New(cfg Config) (*Responder, error) {
	if cfg.Window == nil {
		return nil, fmt.Errorf("%w: window", ErrMissingDependency)
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: provider", ErrMissingDependency)
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = cfg.Provider.ModelName()
	}
	if cfg.Personality == "" {
		cfg.Personality = DefaultPersonality
	}
	if cfg.NewSessionID == nil {
		cfg.NewSessionID = uuid.NewString
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Responder{cfg: cfg}, nil
}

// Respond runs one chat turn. Window persistence and memory failures are
// logged and never fail the turn; only a generation failure is returned.
func (r *Responder) Respond(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, ErrEmptyMessage
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = r.cfg.NewSessionID()
	}
	logger := r.cfg.Logger.With("session_id", sessionID, "user_id", req.UserID)

	ctx, span := r.cfg.Tracer.Start(ctx, "assistant.Respond",
		trace.WithAttributes(
			attribute.String("assistant.session_id", sessionID),
			attribute.String("assistant.provider", r.cfg.ProviderName),
		))
	defer span.End()

	// Step 1: record the user turn.
	userTurn := memory.UserTurn(message)
	recorded := true
	if err := r.cfg.Window.Append(ctx, sessionID, userTurn); err != nil {
		recorded = false
		logger.Warn("assistant: failed to record user turn", "error", err)
	}

	// Step 2: bounded window for generation.
	window, err := r.cfg.Window.Window(ctx, sessionID)
	if err != nil {
		logger.Warn("assistant: failed to read window", "error", err)
		window = nil
	}
	if !recorded || err != nil {
		window = append(window, userTurn)
		if n := r.cfg.Window.Size(); len(window) > n {
			window = window[len(window)-n:]
		}
	}

	// Steps 3-4: personalize the system prompt.
	system := r.personality(logger)
	if req.UserID != "" && r.cfg.Memory != nil {
		system += r.cfg.Memory.ContextForQuery(ctx, message, req.UserID)
	}

	// Step 5: generate.
	resp, err := r.cfg.Provider.Complete(ctx, provider.CompletionRequest{
		System:   system,
		Messages: toMessages(window),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		logger.Error("assistant: generation failed", "error", err)
		return Response{}, fmt.Errorf("assistant: generate: %w", err)
	}

	// Step 6: record the reply.
	if err := r.cfg.Window.Append(ctx, sessionID, memory.AssistantTurn(resp.Content)); err != nil {
		logger.Warn("assistant: failed to record assistant turn", "error", err)
	}

	// Step 7: learn from the user's message.
	var stored int
	if req.UserID != "" && r.cfg.Memory != nil {
		stored = len(r.cfg.Memory.ExtractAndStore(ctx, []memory.Turn{userTurn}, req.UserID))
	}

	count, err := r.cfg.Window.Count(ctx, sessionID)
	if err != nil {
		logger.Warn("assistant: failed to count messages", "error", err)
	}

	span.SetAttributes(
		attribute.Int("assistant.message_count", count),
		attribute.Int("assistant.memories_stored", stored),
	)
	logger.Info("assistant: chat turn processed", "message_count", count, "memories_stored", stored)

	return Response{
		Reply:          resp.Content,
		SessionID:      sessionID,
		MessageCount:   count,
		Provider:       r.cfg.ProviderName,
		MemoriesStored: stored,
	}, nil
}

func (r *Responder) personality(logger *slog.Logger) string {
	if r.cfg.PersonalitySource == nil {
		return r.cfg.Personality
	}
	p, err := r.cfg.PersonalitySource.Load()
	if err != nil {
		logger.Warn("assistant: failed to load personality", "error", err)
		return r.cfg.Personality
	}
	return p
}

// History returns the session's bounded window.
func (r *Responder) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return r.cfg.Window.Window(ctx, sessionID)
}

// Reset clears the session's history.
func (r *Responder) Reset(ctx context.Context, sessionID string) error {
	return r.cfg.Window.Clear(ctx, sessionID)
}

func toMessages(turns []memory.Turn) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, len(turns))
	for i, t := range turns {
		msgs[i] = provider.LLMMessage{Role: t.Role, Content: t.Content}
	}
	return msgs
}
