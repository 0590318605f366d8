package authoring

import (
	"log/slog"

	"github.com/numtema/funnelforge/internal/models"
)

// Editor owns a mutable editing session over one funnel: the current draft
// plus the selected step. The engine's operations stay pure; the Editor is
// the single place that holds the "current draft" reference and the
// selection invariant, mirroring how the dashboard drives an edit session.
type Editor struct {
	engine   *Engine
	draft    models.Funnel
	selected string
}

// NewEditor starts an editing session on a clone of f, so edits never leak
// into the caller's snapshot until Draft is read back and saved. The first
// step, when present, starts selected.
func NewEditor(engine *Engine, f models.Funnel) *Editor {
	draft := f.Clone()
	selected := ""
	if len(draft.Steps) > 0 {
		selected = draft.Steps[0].ID
	}
	return &Editor{engine: engine, draft: draft, selected: selected}
}

// Draft returns a copy of the current draft, suitable for validation or save.
func (ed *Editor) Draft() models.Funnel {
	return ed.draft.Clone()
}

// Selected returns the id of the currently selected step, or "" when the
// draft has no steps.
func (ed *Editor) Selected() string {
	return ed.selected
}

// Select changes the selection. Unknown ids are ignored.
func (ed *Editor) Select(stepID string) {
	if ed.draft.StepIndex(stepID) >= 0 {
		ed.selected = stepID
	}
}

// AddStep appends a step of the given type and selects it.
func (ed *Editor) AddStep(stepType models.StepType) models.FunnelStep {
	ed.draft = ed.engine.AddStep(ed.draft, stepType, len(ed.draft.Steps))
	step := ed.draft.Steps[len(ed.draft.Steps)-1]
	ed.selected = step.ID
	slog.Debug("Editor.AddStep: step created", "step_id", step.ID, "type", stepType)
	return step
}

// RemoveStep removes a step. When the removed step was selected, selection
// moves to the nearest remaining step, preferring the one that followed it.
// Removing the last step leaves an empty selection; the editor surface
// renders an explicit "no step" state for that.
func (ed *Editor) RemoveStep(stepID string) {
	idx := ed.draft.StepIndex(stepID)
	if idx < 0 {
		return
	}
	ed.draft = ed.engine.RemoveStep(ed.draft, stepID)
	if ed.selected != stepID {
		return
	}
	switch {
	case len(ed.draft.Steps) == 0:
		ed.selected = ""
	case idx < len(ed.draft.Steps):
		ed.selected = ed.draft.Steps[idx].ID
	default:
		ed.selected = ed.draft.Steps[len(ed.draft.Steps)-1].ID
	}
}

// MoveStep moves the step with the given id one position up or down.
func (ed *Editor) MoveStep(stepID string, direction MoveDirection) {
	idx := ed.draft.StepIndex(stepID)
	if idx < 0 {
		return
	}
	ed.draft = ed.engine.MoveStep(ed.draft, idx, direction)
}

// UpdateStep merges patch into the step with the given id.
func (ed *Editor) UpdateStep(stepID string, patch StepPatch) {
	ed.draft = ed.engine.UpdateStep(ed.draft, stepID, patch)
}

// AddOption appends an option to a question step.
func (ed *Editor) AddOption(stepID, text string, score int) {
	ed.draft = ed.engine.AddOption(ed.draft, stepID, text, score)
}

// UpdateOption merges patch into one option of a question step.
func (ed *Editor) UpdateOption(stepID, optionID string, patch OptionPatch) {
	ed.draft = ed.engine.UpdateOption(ed.draft, stepID, optionID, patch)
}

// RemoveOption removes one option of a question step.
func (ed *Editor) RemoveOption(stepID, optionID string) {
	ed.draft = ed.engine.RemoveOption(ed.draft, stepID, optionID)
}

// ToggleCapturedField toggles one contact field on a lead-capture step.
func (ed *Editor) ToggleCapturedField(stepID string, field models.CapturedField) {
	ed.draft = ed.engine.ToggleCapturedField(ed.draft, stepID, field)
}
