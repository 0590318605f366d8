// Package authoring implements the structural mutation engine over a funnel
// document.
//
// Every operation is a pure function from an input funnel to an output
// funnel: the caller's value is never mutated, which lets the hosting
// dashboard call these on every keystroke and keep undo/redo and "discard
// changes" trivial. Operations never fail; invalid input (unknown ids,
// out-of-range indexes, wrong step type) is normalized into a no-op so the
// editor is always left in a renderable state. Persisting the result is a
// separate, fallible concern handled by the store.
package authoring

import (
	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
)

// Default display text for freshly created steps. These match the authoring
// surface's locale.
const (
	DefaultStepTitle       = "Nouvelle étape"
	DefaultStepDescription = "Description de votre étape..."
	DefaultButtonText      = "Continuer"
	DefaultOptionText      = "Option 1"
)

// MoveDirection indicates which neighbor a step swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// Engine performs funnel mutations. The id generators are injectable so
// tests can assert deterministic ids; NewEngine wires the production ones.
type Engine struct {
	NewStepID   util.IDGenerator
	NewOptionID util.IDGenerator
}

// NewEngine returns an Engine using the standard random id generators.
func NewEngine() *Engine {
	return &Engine{
		NewStepID:   util.GenerateStepID,
		NewOptionID: util.GenerateOptionID,
	}
}

// AddStep creates a step of the given type with type-appropriate defaults
// and inserts it at atIndex. An atIndex outside [0, len(steps)] appends.
// Question steps start with one zero-score option so the step is immediately
// playable; lead-capture steps start requesting name and email.
func (e *Engine) AddStep(f models.Funnel, stepType models.StepType, atIndex int) models.Funnel {
	out := f.Clone()

	step := models.FunnelStep{
		ID:          e.NewStepID(),
		Type:        stepType,
		Title:       DefaultStepTitle,
		Description: DefaultStepDescription,
		ButtonText:  DefaultButtonText,
		Media:       models.MediaConfig{Type: models.MediaNone},
	}
	switch stepType {
	case models.StepTypeQuestion:
		step.Options = []models.QuestionOption{{ID: e.NewOptionID(), Text: DefaultOptionText, Score: 0}}
	case models.StepTypeLeadCapture:
		step.Fields = []models.CapturedField{models.FieldName, models.FieldEmail}
	}

	if atIndex < 0 || atIndex > len(out.Steps) {
		atIndex = len(out.Steps)
	}
	out.Steps = append(out.Steps, models.FunnelStep{})
	copy(out.Steps[atIndex+1:], out.Steps[atIndex:])
	out.Steps[atIndex] = step
	return out
}

// RemoveStep removes the step with the given id. Removing the last remaining
// step leaves a zero-step funnel; the editor renders an explicit empty state
// for that case rather than treating it as an error here.
func (e *Engine) RemoveStep(f models.Funnel, stepID string) models.Funnel {
	out := f.Clone()
	idx := out.StepIndex(stepID)
	if idx < 0 {
		return out
	}
	out.Steps = append(out.Steps[:idx], out.Steps[idx+1:]...)
	return out
}

// MoveStep swaps the step at index with its neighbor in the given direction.
// Moving the first step up or the last step down is a no-op, as is any
// out-of-range index.
func (e *Engine) MoveStep(f models.Funnel, index int, direction MoveDirection) models.Funnel {
	out := f.Clone()
	if index < 0 || index >= len(out.Steps) {
		return out
	}
	var neighbor int
	switch direction {
	case MoveUp:
		neighbor = index - 1
	case MoveDown:
		neighbor = index + 1
	default:
		return out
	}
	if neighbor < 0 || neighbor >= len(out.Steps) {
		return out
	}
	out.Steps[index], out.Steps[neighbor] = out.Steps[neighbor], out.Steps[index]
	return out
}

// StepPatch carries the fields UpdateStep may merge into a step. Nil fields
// are left untouched. A step's type is immutable; changing kind is modeled
// as remove plus add so variant payloads never outlive their type.
type StepPatch struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	ButtonText  *string             `json:"button_text,omitempty"`
	Media       *models.MediaConfig `json:"media,omitempty"`
	CalendarURL *string             `json:"calendar_url,omitempty"`
}

// UpdateStep shallow-merges patch into the step matching stepID. An unknown
// stepID is a no-op. Media is normalized so a "none" type never carries a URL.
func (e *Engine) UpdateStep(f models.Funnel, stepID string, patch StepPatch) models.Funnel {
	out := f.Clone()
	step := out.StepByID(stepID)
	if step == nil {
		return out
	}
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Description != nil {
		step.Description = *patch.Description
	}
	if patch.ButtonText != nil {
		step.ButtonText = *patch.ButtonText
	}
	if patch.Media != nil {
		step.Media = *patch.Media
	}
	if patch.CalendarURL != nil && step.Type == models.StepTypeCalendar {
		step.CalendarURL = *patch.CalendarURL
	}
	if step.Media.Type == models.MediaNone {
		step.Media.URL = ""
	}
	return out
}

// AddOption appends a scored option to a question step. Non-question steps
// and unknown ids are no-ops.
func (e *Engine) AddOption(f models.Funnel, stepID, text string, score int) models.Funnel {
	out := f.Clone()
	step := out.StepByID(stepID)
	if step == nil || step.Type != models.StepTypeQuestion {
		return out
	}
	step.Options = append(step.Options, models.QuestionOption{ID: e.NewOptionID(), Text: text, Score: score})
	return out
}

// OptionPatch carries the fields UpdateOption may merge into an option.
type OptionPatch struct {
	Text  *string `json:"text,omitempty"`
	Score *int    `json:"score,omitempty"`
}

// UpdateOption merges patch into the option matching optionID on the given
// question step. Unknown step or option ids are no-ops.
func (e *Engine) UpdateOption(f models.Funnel, stepID, optionID string, patch OptionPatch) models.Funnel {
	out := f.Clone()
	step := out.StepByID(stepID)
	if step == nil {
		return out
	}
	opt := step.OptionByID(optionID)
	if opt == nil {
		return out
	}
	if patch.Text != nil {
		opt.Text = *patch.Text
	}
	if patch.Score != nil {
		opt.Score = *patch.Score
	}
	return out
}

// RemoveOption filters the option with the given id out of a question step.
// Removing the last option is allowed; Validate flags the resulting
// option-less question so the author is warned before publishing.
func (e *Engine) RemoveOption(f models.Funnel, stepID, optionID string) models.Funnel {
	out := f.Clone()
	step := out.StepByID(stepID)
	if step == nil {
		return out
	}
	kept := step.Options[:0]
	for _, opt := range step.Options {
		if opt.ID != optionID {
			kept = append(kept, opt)
		}
	}
	step.Options = kept
	return out
}

// ToggleCapturedField toggles one contact field on a lead-capture step:
// present fields are removed, absent fields appended. Other step types are
// no-ops. Field order is preserved but not significant; toggle semantics
// make duplicates impossible.
func (e *Engine) ToggleCapturedField(f models.Funnel, stepID string, field models.CapturedField) models.Funnel {
	out := f.Clone()
	step := out.StepByID(stepID)
	if step == nil || step.Type != models.StepTypeLeadCapture {
		return out
	}
	if step.HasField(field) {
		kept := step.Fields[:0]
		for _, existing := range step.Fields {
			if existing != field {
				kept = append(kept, existing)
			}
		}
		step.Fields = kept
		return out
	}
	step.Fields = append(step.Fields, field)
	return out
}
