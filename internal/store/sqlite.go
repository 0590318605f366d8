// Package store provides storage backends for FunnelForge.
//
// This file implements the SQLite-backed store used as the local fallback
// when the primary database is unreachable, and as the default for
// single-machine deployments.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists funnels and leads in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveFunnel(f models.Funnel) (models.Funnel, error) {
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
		slog.Error("SQLiteStore.SaveFunnel marshal failed", "error", err, "funnel_id", f.ID)
		return f, err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO funnels (id, name, description, steps, settings, status, share_token, views, conversions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Description, stepsJSON, settingsJSON, f.Status,
		nilIfEmpty(f.ShareToken), f.Views, f.Conversions, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveFunnel failed", "error", err, "funnel_id", f.ID)
		return f, fmt.Errorf("failed to save funnel %s: %w", f.ID, err)
	}
	slog.Debug("SQLiteStore.SaveFunnel succeeded", "funnel_id", f.ID, "steps", len(f.Steps))
	return f, nil
}

const sqliteFunnelColumns = `id, name, description, steps, settings, status, share_token, views, conversions, created_at, updated_at`

func (s *SQLiteStore) GetFunnel(id string) (*models.Funnel, error) {
	row := s.db.QueryRow(`SELECT `+sqliteFunnelColumns+` FROM funnels WHERE id = ?`, id)
	f, err := scanFunnel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetFunnel failed", "error", err, "funnel_id", id)
		return nil, fmt.Errorf("failed to get funnel %s: %w", id, err)
	}
	return &f, nil
}

func (s *SQLiteStore) GetFunnelByShareToken(token string) (*models.Funnel, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+sqliteFunnelColumns+` FROM funnels WHERE share_token = ?`, token)
	f, err := scanFunnel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetFunnelByShareToken failed", "error", err)
		return nil, fmt.Errorf("failed to get funnel by share token: %w", err)
	}
	return &f, nil
}

func (s *SQLiteStore) ListFunnels() ([]models.Funnel, error) {
	rows, err := s.db.Query(`SELECT ` + sqliteFunnelColumns + ` FROM funnels ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("SQLiteStore.ListFunnels query failed", "error", err)
		return nil, fmt.Errorf("failed to query funnels: %w", err)
	}
	defer rows.Close()

	var funnels []models.Funnel
	for rows.Next() {
		f, err := scanFunnel(rows)
		if err != nil {
			slog.Error("SQLiteStore.ListFunnels scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan funnel row: %w", err)
		}
		funnels = append(funnels, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funnel rows: %w", err)
	}
	slog.Debug("SQLiteStore.ListFunnels succeeded", "count", len(funnels))
	return funnels, nil
}

func (s *SQLiteStore) DeleteFunnel(id string) error {
	_, err := s.db.Exec(`DELETE FROM funnels WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore.DeleteFunnel failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to delete funnel %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) IncrementViews(id string) error {
	_, err := s.db.Exec(`UPDATE funnels SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore.IncrementViews failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to increment views for %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) IncrementConversions(id string) error {
	_, err := s.db.Exec(`UPDATE funnels SET conversions = conversions + 1 WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore.IncrementConversions failed", "error", err, "funnel_id", id)
		return fmt.Errorf("failed to increment conversions for %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) AddLead(l models.Lead) (models.Lead, error) {
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
		slog.Error("SQLiteStore.AddLead marshal failed", "error", err, "lead_id", l.ID)
		return l, fmt.Errorf("marshal lead answers: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO leads (id, funnel_id, name, email, phone, score, segment, status, answers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.FunnelID, l.Name, l.Email, nilIfEmpty(l.Phone), l.Score,
		nilIfEmpty(l.Segment), l.Status, string(answersJSON), l.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore.AddLead failed", "error", err, "lead_id", l.ID)
		return l, fmt.Errorf("failed to insert lead %s: %w", l.ID, err)
	}
	slog.Debug("SQLiteStore.AddLead succeeded", "lead_id", l.ID, "funnel_id", l.FunnelID, "score", l.Score)
	return l, nil
}

const sqliteLeadColumns = `id, funnel_id, name, email, phone, score, segment, status, answers, created_at`

func (s *SQLiteStore) ListLeads() ([]models.Lead, error) {
	return s.queryLeads(`SELECT ` + sqliteLeadColumns + ` FROM leads ORDER BY created_at DESC, id DESC`)
}

func (s *SQLiteStore) ListLeadsByFunnel(funnelID string) ([]models.Lead, error) {
	return s.queryLeads(`SELECT `+sqliteLeadColumns+` FROM leads WHERE funnel_id = ? ORDER BY created_at DESC, id DESC`, funnelID)
}

func (s *SQLiteStore) queryLeads(query string, args ...interface{}) ([]models.Lead, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore lead query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore lead scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore closing database connection")
	return s.db.Close()
}
