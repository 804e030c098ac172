package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the metrics server.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c *ServerConfig) defaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Sizer reports the number of stored memories for the health endpoint.
type Sizer interface {
	Len() int
}

// Pinger is a dependency /healthz verifies on every request.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the JSON body of GET /healthz. Status is "ok" or
// "degraded" when any check fails.
type HealthResponse struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Memories int               `json:"memories"`
	Checks   map[string]string `json:"checks,omitempty"`
}

type namedCheck struct {
	name   string
	pinger Pinger
}

// Server exposes /metrics and /healthz.
type Server struct {
	config    ServerConfig
	gatherer  prometheus.Gatherer
	memories  Sizer
	checks    []namedCheck
	logger    *slog.Logger
	startedAt time.Time

	server   *http.Server
	listener net.Listener
}

// NewServer creates a Server. memories may be nil.
func NewServer(cfg ServerConfig, gatherer prometheus.Gatherer, memories Sizer, logger *slog.Logger) *Server {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		gatherer: gatherer,
		memories: memories,
		logger:   logger,
	}
}

// AddCheck registers a dependency reported under name in /healthz. It must
// be called before Start.
func (s *Server) AddCheck(name string, p Pinger) {
	s.checks = append(s.checks, namedCheck{name: name, pinger: p})
}

// Handler builds the chi router with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if !s.startedAt.IsZero() {
			resp.Uptime = time.Since(s.startedAt).Truncate(time.Second).String()
		}
		if s.memories != nil {
			resp.Memories = s.memories.Len()
		}

		status := http.StatusOK
		if len(s.checks) > 0 {
			resp.Checks = make(map[string]string, len(s.checks))
		}
		for _, c := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.pinger.Ping(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("telemetry: health check failed", "check", c.name, "error", err)
				resp.Checks[c.name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("telemetry: listen: %w", err)
	}

	s.startedAt = time.Now()
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		s.logger.Info("telemetry: metrics server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("telemetry: serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("telemetry: metrics server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
