// Package store provides storage backends for FunnelForge.
//
// This file implements the PostgreSQL-backed store used as the primary
// backend in production deployments.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists funnels and leads in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveFunnel(f models.Funnel) (models.Funnel, error) {
	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = util.GenerateFunnelID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	stepsJSON, settingsJSON, err := marshalFunnelDocs(f)
	if err != nil {
		slog.Error("PostgresStore.SaveFunnel marshal failed", "error", err, "funnel_id", f.ID)
		return f, err
	}

	_, err = s.db.Exec(`
		INSERT INTO funnels (id, name, description, steps, settings, status, share_token, views, conversions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			steps = EXCLUDED.steps,
			settings = EXCLUDED.settings,
			status = EXCLUDED.status,
			share_token = EXCLUDED.share_token,
			updated_at = EXCLUDED.updated_at`,
		f.ID, f.Name, f.Description, stepsJSON, settingsJSON, f.Status,
		nilIfEmpty(f.ShareToken), f.Views, f.Conversions, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveFunnel failed", "error", err, "funnel_id", f.ID)
		return f, fmt.Errorf("failed to save funnel %s: %w", f.ID, err)
	}
	slog.Debug("PostgresStore.SaveFunnel succeeded", "funnel_id", f.ID, "steps", len(f.Steps))
	return f, nil
}

const postgresFunnelColumns = `id, name, description, steps, settings, status, share_token, views, conversions, created_at, updated_at`

func (s *PostgresStore) GetFunnel(id string) (*models.Funnel, error) {
	row := s.db.QueryRow(`SELECT `+postgresFunnelColumns+` FROM funnels WHERE id = $1`, id)
	f, err := scanFunnel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetFunnel failed", "error", err, "funnel_id", id)
		return nil, fmt.Errorf("failed to get funnel %s: %w", id, err)
	}
	return &f, nil
}

func (s *PostgresStore) GetFunnelByShareToken(token string) (*models.Funnel, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+postgresFunnelColumns+` FROM funnels WHERE share_token = $1`, token)
	f, err := scanFunnel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetFunnelByShareToken failed", "error", err)
		return nil, fmt.Errorf("failed to get funnel by share token: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ListFunnels() ([]models.Funnel, error) {
	rows, err := s.db.Query(`SELECT ` + postgresFunnelColumns + ` FROM funnels ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("PostgresStore.ListFunnels query failed", "error", err)
		return nil, fmt.Errorf("failed to query funnels: %w", err)
	}
	defer rows.Close()

	var funnels []models.Funnel
	for rows.Next() {
		f, err := scanFunnel(rows)
		if err != nil {
			slog.Error("PostgresStore.ListFunnels scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan funnel row: %w", err)
		}
		funnels = append(funnels, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funnel rows: %w", err)
	}
	slog.Debug("PostgresStore.ListFunnels succeeded", "count", len(funnels))
	return funnels, nil
}

func (s *PostgresStore) DeleteFunnel(id string) error {
	_, err := s.db.Exec(`DELETE FROM funnels WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore.DeleteFunnel failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to delete funnel %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) IncrementViews(id string) error {
	_, err := s.db.Exec(`UPDATE funnels SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore.IncrementViews failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to increment views for %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) IncrementConversions(id string) error {
	_, err := s.db.Exec(`UPDATE funnels SET conversions = conversions + 1 WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore.IncrementConversions failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to increment conversions for %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) AddLead(l models.Lead) (models.Lead, error) {
	if l.ID == "" {
		l.ID = util.GenerateLeadID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}

	answersJSON, err := json.Marshal(l.Answers)
	if err != nil {
		slog.Error("PostgresStore.AddLead marshal failed", "error", err, "lead_id", l.ID)
		return l, fmt.Errorf("marshal lead answers: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO leads (id, funnel_id, name, email, phone, score, segment, status, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.FunnelID, l.Name, l.Email, nilIfEmpty(l.Phone), l.Score,
		nilIfEmpty(l.Segment), l.Status, string(answersJSON), l.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore.AddLead failed", "error", err, "lead_id", l.ID)
		return l, fmt.Errorf("failed to insert lead %s: %w", l.ID, err)
	}
	slog.Debug("PostgresStore.AddLead succeeded", "lead_id", l.ID, "funnel_id", l.FunnelID, "score", l.Score)
	return l, nil
}

const postgresLeadColumns = `id, funnel_id, name, email, phone, score, segment, status, answers, created_at`

func (s *PostgresStore) ListLeads() ([]models.Lead, error) {
	return s.queryLeads(`SELECT ` + postgresLeadColumns + ` FROM leads ORDER BY created_at DESC, id DESC`)
}

func (s *PostgresStore) ListLeadsByFunnel(funnelID string) ([]models.Lead, error) {
	return s.queryLeads(`SELECT `+postgresLeadColumns+` FROM leads WHERE funnel_id = $1 ORDER BY created_at DESC, id DESC`, funnelID)
}

func (s *PostgresStore) queryLeads(query string, args ...interface{}) ([]models.Lead, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore lead query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore lead scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore closing database connection")
	return s.db.Close()
}
