package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/numtema/funnelforge/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner abstracts sql.Row and sql.Rows so the scan helpers serve both.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// marshalFunnelDocs serializes the JSON document columns of a funnel.
func marshalFunnelDocs(f models.Funnel) (stepsJSON, settingsJSON string, err error) {
	steps, err := json.Marshal(f.Steps)
	if err != nil {
		return "", "", fmt.Errorf("marshal funnel steps: %w", err)
	}
	settings, err := json.Marshal(f.Settings)
	if err != nil {
		return "", "", fmt.Errorf("marshal funnel settings: %w", err)
	}
	return string(steps), string(settings), nil
}

// scanFunnel reads one funnel row in the column order used by both backends:
// id, name, description, steps, settings, status, share_token, views,
// conversions, created_at, updated_at.
func scanFunnel(row rowScanner) (models.Funnel, error) {
	var f models.Funnel
	var stepsJSON, settingsJSON string
	var shareToken sql.NullString
	err := row.Scan(
		&f.ID, &f.Name, &f.Description, &stepsJSON, &settingsJSON,
		&f.Status, &shareToken, &f.Views, &f.Conversions, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return f, err
	}
	f.ShareToken = shareToken.String
	if stepsJSON != "" {
		if err := json.Unmarshal([]byte(stepsJSON), &f.Steps); err != nil {
			return f, fmt.Errorf("unmarshal funnel steps: %w", err)
		}
	}
	if settingsJSON != "" {
		if err := json.Unmarshal([]byte(settingsJSON), &f.Settings); err != nil {
			return f, fmt.Errorf("unmarshal funnel settings: %w", err)
		}
	}
	return f, nil
}

// scanLead reads one lead row in the column order used by both backends:
// id, funnel_id, name, email, phone, score, segment, status, answers,
// created_at.
func scanLead(row rowScanner) (models.Lead, error) {
	var l models.Lead
	var answersJSON string
	var phone, segment sql.NullString
	err := row.Scan(
		&l.ID, &l.FunnelID, &l.Name, &l.Email, &phone, &l.Score,
		&segment, &l.Status, &answersJSON, &l.CreatedAt,
	)
	if err != nil {
		return l, err
	}
	l.Phone = phone.String
	l.Segment = segment.String
	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &l.Answers); err != nil {
			return l, fmt.Errorf("unmarshal lead answers: %w", err)
		}
	}
	return l, nil
}
