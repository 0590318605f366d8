// Package models defines the lead record produced by the traversal engine.
package models

import (
	"errors"
	"time"
)

// LeadStatus represents the CRM state of a captured lead. Only "new" is
// assigned by this service; later transitions are an external CRM concern.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
)

// IsValidLeadStatus checks if the given lead status is supported.
func IsValidLeadStatus(ls LeadStatus) bool {
	switch ls {
	case LeadStatusNew, LeadStatusContacted, LeadStatusConverted:
		return true
	default:
		return false
	}
}

// Answer records one question response: the chosen option and its score
// contribution at the time it was selected. Keeping the per-step
// contribution lets the player recompute the total when the user navigates
// back and re-answers, instead of accumulating additively.
type Answer struct {
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Score    int    `json:"score"`
}

// Lead is a captured prospect record. Created exactly once, at the
// lead-capture step's successful submission; Score and Answers are frozen at
// that moment and never mutated afterward by this service.
type Lead struct {
	ID        string            `json:"id"`
	FunnelID  string            `json:"funnel_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Score     int               `json:"score"`
	Segment   string            `json:"segment,omitempty"`
	Status    LeadStatus        `json:"status"`
	Answers   map[string]Answer `json:"answers,omitempty"` // keyed by step id
	CreatedAt time.Time         `json:"created_at"`
}

// Lead validation errors.
var (
	ErrLeadMissingFunnel  = errors.New("lead funnel id is required")
	ErrLeadMissingContact = errors.New("lead has no contact details")
)

// Validate checks the minimum shape required to persist a lead.
func (l *Lead) Validate() error {
	if l.FunnelID == "" {
		return ErrLeadMissingFunnel
	}
	if l.Name == "" && l.Email == "" && l.Phone == "" {
		return ErrLeadMissingContact
	}
	return nil
}
