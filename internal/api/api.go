// Package api provides the HTTP server exposing the PromptCanvas session.
//
// Every endpoint answers with the models.APIResponse envelope except the event stream,
// which emits server-sent events carrying session snapshots.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/BTreeMap/PromptCanvas/internal/store"
	"github.com/BTreeMap/PromptCanvas/internal/workflow"
)

// Default server configuration constants
const (
	// DefaultAddr is the listen address used when none is configured
	DefaultAddr = ":8080"
	// DefaultReadHeaderTimeout bounds how long a client may take to send request headers
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultKeepAliveInterval is the interval between SSE keep-alive comments
	DefaultKeepAliveInterval = 15 * time.Second
)

// Workflow is the session behaviour the API drives.
type Workflow interface {
	Submit(ctx context.Context, promptText string) (models.Artifact, error)
	Regenerate(ctx context.Context) (models.Artifact, error)
	TryClear() error
	SetPrompt(text string)
	Snapshot() models.Session
	Subscribe(fn workflow.Listener) func()
	SourceName() string
	HistoryLimit() int
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr              string
	KeepAliveInterval time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithKeepAliveInterval sets the interval between SSE keep-alive comments.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(o *Opts) {
		o.KeepAliveInterval = d
	}
}

// Server is the PromptCanvas HTTP API.
type Server struct {
	wf         Workflow
	st         store.Store
	addr       string
	keepAlive  time.Duration
	httpServer *http.Server
}

// NewServer creates a Server for wf, reading receipts from st.
func NewServer(wf Workflow, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, KeepAliveInterval: DefaultKeepAliveInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}

	s := &Server{
		wf:        wf,
		st:        st,
		addr:      cfg.Addr,
		keepAlive: cfg.KeepAliveInterval,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.sessionHandler)
	mux.HandleFunc("/session/prompt", s.setPromptHandler)
	mux.HandleFunc("/session/generate", s.generateHandler)
	mux.HandleFunc("/session/regenerate", s.regenerateHandler)
	mux.HandleFunc("/session/clear", s.clearHandler)
	mux.HandleFunc("/session/history", s.historyHandler)
	mux.HandleFunc("/session/events", s.eventsHandler)
	mux.HandleFunc("/receipts", s.receiptsHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return withRequestLogging(mux)
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	slog.Info("Server.Start: API listening", "addr", s.addr, "source", s.wf.SourceName())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server.Start: server failed", "error", err)
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Server.Shutdown: shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
