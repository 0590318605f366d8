// Package store provides storage backends for FunnelForge.
//
// Funnels and leads persist to PostgreSQL in production, with an SQLite
// fallback so the builder keeps working when the primary database is
// unreachable, and an in-memory store for tests. All backends implement the
// same Store interface.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/numtema/funnelforge/internal/models"
)

// Store is the persistence collaborator consumed by the API layer. The
// traversal and authoring engines never touch it directly; they exchange
// plain values with callers who decide when to persist.
type Store interface {
	// SaveFunnel upserts a funnel, assigning id and created_at on first
	// save, and returns the stored document.
	SaveFunnel(f models.Funnel) (models.Funnel, error)
	// GetFunnel returns the funnel with the given id, or nil when absent.
	GetFunnel(id string) (*models.Funnel, error)
	// GetFunnelByShareToken returns the published funnel behind a share
	// token, or nil when absent.
	GetFunnelByShareToken(token string) (*models.Funnel, error)
	// ListFunnels returns all funnels, newest first.
	ListFunnels() ([]models.Funnel, error)
	// DeleteFunnel removes a funnel. Deleting an absent id is not an error.
	DeleteFunnel(id string) error
	// IncrementViews bumps the aggregate view counter. Updated by the API
	// layer when a playthrough starts, never by the engine.
	IncrementViews(id string) error
	// IncrementConversions bumps the aggregate conversion counter.
	IncrementConversions(id string) error

	// AddLead persists a captured lead, assigning id and created_at when
	// missing, and returns the stored record.
	AddLead(l models.Lead) (models.Lead, error)
	// ListLeads returns all leads, newest first.
	ListLeads() ([]models.Lead, error)
	// ListLeadsByFunnel returns the leads captured by one funnel, newest first.
	ListLeadsByFunnel(funnelID string) ([]models.Lead, error)

	// Close releases the backend's resources.
	Close() error
}

// Opts holds configuration options for building a store.
type Opts struct {
	// DSN is the primary database connection string (Postgres URL or SQLite
	// file path).
	DSN string
	// FallbackDSN is the SQLite path used when the primary is unreachable.
	FallbackDSN string
}

// Option defines a configuration option for store construction.
type Option func(*Opts)

// WithDSN sets the primary database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithFallbackDSN sets the SQLite path used when the primary store cannot be
// opened.
func WithFallbackDSN(dsn string) Option {
	return func(o *Opts) { o.FallbackDSN = dsn }
}

// DetectDSNType reports "postgres" or "sqlite" for the given DSN. Postgres
// DSNs are URLs or key=value connection strings; everything else is treated
// as an SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Open builds the store for the configured DSN. A Postgres DSN that cannot
// be reached degrades to the SQLite fallback instead of failing the whole
// service: the editing surface must keep working, and the operator is told
// via the log. A missing DSN goes straight to the fallback.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.DSN != "" {
		if DetectDSNType(cfg.DSN) == "postgres" {
			st, err := NewPostgresStore(WithDSN(cfg.DSN))
			if err == nil {
				slog.Info("store.Open: using Postgres backend")
				return st, nil
			}
			if cfg.FallbackDSN == "" {
				return nil, fmt.Errorf("failed to open primary store: %w", err)
			}
			slog.Warn("store.Open: primary store unreachable, degrading to local SQLite", "error", err, "fallback", cfg.FallbackDSN)
		} else {
			st, err := NewSQLiteStore(WithDSN(cfg.DSN))
			if err != nil {
				return nil, fmt.Errorf("failed to open SQLite store: %w", err)
			}
			slog.Info("store.Open: using SQLite backend", "path", cfg.DSN)
			return st, nil
		}
	}

	if cfg.FallbackDSN == "" {
		return nil, fmt.Errorf("no database DSN configured")
	}
	st, err := NewSQLiteStore(WithDSN(cfg.FallbackDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback SQLite store: %w", err)
	}
	slog.Info("store.Open: using local SQLite backend", "path", cfg.FallbackDSN)
	return st, nil
}
