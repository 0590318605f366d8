// Package api provides HTTP handlers and the main API server logic for
// FunnelForge.
//
// It exposes RESTful endpoints for authoring funnels, publishing them, and
// running visitor playthrough sessions. The API integrates the store,
// authoring, player, genai and messaging modules; the engines themselves
// never touch HTTP or storage.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/numtema/funnelforge/internal/authoring"
	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/player"
	"github.com/numtema/funnelforge/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// GenAI is the authoring-assistance surface consumed by the API. Satisfied
// by *genai.Client.
type GenAI interface {
	EnhanceCopy(ctx context.Context, text string) (string, error)
	GenerateImagePrompt(ctx context.Context, title, description string) (string, error)
	GenerateStrategy(ctx context.Context, goal string) (models.Funnel, error)
}

// Notifier is the lead-notification surface consumed by the API. Satisfied
// by *messaging.LeadNotifier.
type Notifier interface {
	NotifyLead(ctx context.Context, funnel models.Funnel, lead models.Lead) error
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// GenAI enables the authoring-assistance endpoints when set.
	GenAI GenAI
	// Notifier enables WhatsApp lead notifications when set.
	Notifier Notifier
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithGenAI wires an authoring-assistance client.
func WithGenAI(g GenAI) Option {
	return func(o *Opts) { o.GenAI = g }
}

// WithNotifier wires a lead notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// Server holds the API dependencies and the in-memory playthrough sessions.
type Server struct {
	st       store.Store
	engine   *authoring.Engine
	gaClient GenAI
	notifier Notifier
	addr     string

	mu       sync.Mutex
	sessions map[string]player.State
}

// NewServer creates an API server on top of the given store.
func NewServer(st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	slog.Debug("Server.NewServer configured", "addr", addr, "genai_set", cfg.GenAI != nil, "notifier_set", cfg.Notifier != nil)
	return &Server{
		st:       st,
		engine:   authoring.NewEngine(),
		gaClient: cfg.GenAI,
		notifier: cfg.Notifier,
		addr:     addr,
		sessions: make(map[string]player.State),
	}
}

// Handler returns the routing mux for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/funnels", s.funnelsHandler)
	mux.HandleFunc("/funnels/", s.funnelHandler)
	mux.HandleFunc("/leads", s.leadsHandler)
	mux.HandleFunc("/play/", s.playHandler)
	mux.HandleFunc("/genai/enhance", s.enhanceHandler)
	mux.HandleFunc("/genai/image-prompt", s.imagePromptHandler)
	mux.HandleFunc("/genai/strategy", s.strategyHandler)
	return mux
}

// Run starts the HTTP server and blocks until it fails.
func (s *Server) Run() error {
	slog.Info("Server.Run: FunnelForge API listening", "addr", s.addr)
	if err := http.ListenAndServe(s.addr, s.Handler()); err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}
