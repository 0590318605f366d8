// Package models defines the core data structures for FunnelForge.
//
// It includes the funnel document model shared by the authoring engine, the
// player and the storage backends, plus the lead record and the API response
// envelope.
package models

import (
	"errors"
	"fmt"
	"time"
)

// StepType defines what kind of screen a funnel step renders.
type StepType string

const (
	// StepTypeWelcome is the opening screen of a funnel.
	StepTypeWelcome StepType = "welcome"
	// StepTypeQuestion presents scored answer options.
	StepTypeQuestion StepType = "question"
	// StepTypeMessage is a pass-through content screen.
	StepTypeMessage StepType = "message"
	// StepTypeLeadCapture collects contact details and emits a lead.
	StepTypeLeadCapture StepType = "lead_capture"
	// StepTypeCalendar embeds an external scheduling link.
	StepTypeCalendar StepType = "calendar"
)

// IsValidStepType checks if the given step type is supported.
func IsValidStepType(st StepType) bool {
	switch st {
	case StepTypeWelcome, StepTypeQuestion, StepTypeMessage, StepTypeLeadCapture, StepTypeCalendar:
		return true
	default:
		return false
	}
}

// MediaType defines the background media attached to a step.
type MediaType string

const (
	MediaNone  MediaType = "none"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaConfig holds a step's media reference. URL is meaningful only when
// Type is not MediaNone; the authoring engine clears it otherwise.
type MediaConfig struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
}

// CapturedField identifies one contact field requested by a lead-capture step.
type CapturedField string

const (
	FieldName  CapturedField = "name"
	FieldEmail CapturedField = "email"
	FieldPhone CapturedField = "phone"
)

// QuestionOption is one selectable answer on a question step. Score is a
// signed contribution to the lead's total; the engine accepts any integer.
type QuestionOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// FunnelStep is one screen in a funnel. Type is immutable after creation;
// changing a step's kind is modeled as delete plus add so type-specific
// payloads never outlive their variant. Options, Fields and CalendarURL are
// populated only for their respective step types.
type FunnelStep struct {
	ID          string           `json:"id"`
	Type        StepType         `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ButtonText  string           `json:"button_text"`
	Media       MediaConfig      `json:"media"`
	Options     []QuestionOption `json:"options,omitempty"`      // question steps only
	Fields      []CapturedField  `json:"fields,omitempty"`       // lead_capture steps only
	CalendarURL string           `json:"calendar_url,omitempty"` // calendar steps only
}

// HasField reports whether the step requests the given contact field.
func (s *FunnelStep) HasField(field CapturedField) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// OptionByID returns the option with the given id, or nil.
func (s *FunnelStep) OptionByID(id string) *QuestionOption {
	for i := range s.Options {
		if s.Options[i].ID == id {
			return &s.Options[i]
		}
	}
	return nil
}

// FunnelStatus is the publication state of a funnel.
type FunnelStatus string

const (
	// StatusDraft marks a funnel still owned by the authoring engine.
	StatusDraft FunnelStatus = "draft"
	// StatusPublished marks a funnel served to players as an immutable snapshot.
	StatusPublished FunnelStatus = "published"
)

// Funnel is the canonical, serializable representation of a funnel. Step
// order is significant: it is both authoring order and traversal order.
type Funnel struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Steps       []FunnelStep   `json:"steps"`
	Settings    FunnelSettings `json:"settings"`
	Status      FunnelStatus   `json:"status"`
	ShareToken  string         `json:"share_token,omitempty"`
	Views       int            `json:"views"`
	Conversions int            `json:"conversions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StepIndex returns the position of the step with the given id, or -1.
func (f *Funnel) StepIndex(stepID string) int {
	for i := range f.Steps {
		if f.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// StepByID returns the step with the given id, or nil.
func (f *Funnel) StepByID(stepID string) *FunnelStep {
	if i := f.StepIndex(stepID); i >= 0 {
		return &f.Steps[i]
	}
	return nil
}

// Structural validation errors. Validate reports these as values; nothing in
// the document model panics or blocks a save.
var (
	ErrNoSteps                  = errors.New("funnel has no steps")
	ErrInvalidStepType          = errors.New("invalid step type")
	ErrDuplicateStepID          = errors.New("duplicate step id")
	ErrDuplicateOptionID        = errors.New("duplicate option id")
	ErrQuestionWithoutOptions   = errors.New("question step has no options")
	ErrLeadCaptureWithoutFields = errors.New("lead capture step has no fields")
	ErrCalendarWithoutURL       = errors.New("calendar step has no calendar url")
	ErrOrphanMediaURL           = errors.New("media url set without media type")
)

// Validate checks the funnel's structural invariants and returns every
// violation found. An empty result means the funnel is playable. Violations
// are advisory: the authoring surface may still save a funnel that fails
// validation, so callers decide whether to block or warn.
func (f *Funnel) Validate() []error {
	var violations []error

	if len(f.Steps) == 0 {
		violations = append(violations, ErrNoSteps)
	}

	stepIDs := make(map[string]bool, len(f.Steps))
	for i := range f.Steps {
		step := &f.Steps[i]
		if stepIDs[step.ID] {
			violations = append(violations, fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID))
		}
		stepIDs[step.ID] = true

		if !IsValidStepType(step.Type) {
			violations = append(violations, fmt.Errorf("%w: %q on step %s", ErrInvalidStepType, step.Type, step.ID))
			continue
		}

		if step.Media.Type == MediaNone && step.Media.URL != "" {
			violations = append(violations, fmt.Errorf("%w: step %s", ErrOrphanMediaURL, step.ID))
		}

		switch step.Type {
		case StepTypeQuestion:
			if len(step.Options) == 0 {
				violations = append(violations, fmt.Errorf("%w: step %s", ErrQuestionWithoutOptions, step.ID))
			}
			optionIDs := make(map[string]bool, len(step.Options))
			for _, opt := range step.Options {
				if optionIDs[opt.ID] {
					violations = append(violations, fmt.Errorf("%w: %s on step %s", ErrDuplicateOptionID, opt.ID, step.ID))
				}
				optionIDs[opt.ID] = true
			}
		case StepTypeLeadCapture:
			if len(step.Fields) == 0 {
				violations = append(violations, fmt.Errorf("%w: step %s", ErrLeadCaptureWithoutFields, step.ID))
			}
		case StepTypeCalendar:
			if step.CalendarURL == "" {
				violations = append(violations, fmt.Errorf("%w: step %s", ErrCalendarWithoutURL, step.ID))
			}
		}
	}

	return violations
}

// Clone returns a deep copy of the funnel sharing no structure with the
// original. The authoring engine clones before an editing session so
// in-progress edits never leak into the last-saved snapshot.
func (f *Funnel) Clone() Funnel {
	out := *f

	out.Steps = make([]FunnelStep, len(f.Steps))
	for i, step := range f.Steps {
		cloned := step
		if step.Options != nil {
			cloned.Options = make([]QuestionOption, len(step.Options))
			copy(cloned.Options, step.Options)
		}
		if step.Fields != nil {
			cloned.Fields = make([]CapturedField, len(step.Fields))
			copy(cloned.Fields, step.Fields)
		}
		out.Steps[i] = cloned
	}

	out.Settings = f.Settings.clone()
	return out
}
