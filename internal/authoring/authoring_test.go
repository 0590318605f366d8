package authoring

import (
	"fmt"
	"testing"

	"github.com/numtema/funnelforge/internal/models"
)

// testEngine returns an Engine with deterministic, sequential ids.
func testEngine() *Engine {
	stepSeq, optSeq := 0, 0
	return &Engine{
		NewStepID: func() string {
			stepSeq++
			return fmt.Sprintf("st_%03d", stepSeq)
		},
		NewOptionID: func() string {
			optSeq++
			return fmt.Sprintf("op_%03d", optSeq)
		},
	}
}

func baseFunnel(e *Engine) models.Funnel {
	f := models.Funnel{ID: "fn_test", Name: "Demo", Settings: models.DefaultSettings(), Status: models.StatusDraft}
	f = e.AddStep(f, models.StepTypeWelcome, -1)
	f = e.AddStep(f, models.StepTypeQuestion, -1)
	f = e.AddStep(f, models.StepTypeLeadCapture, -1)
	return f
}

func stepOrder(f models.Funnel) []string {
	ids := make([]string, len(f.Steps))
	for i, s := range f.Steps {
		ids[i] = s.ID
	}
	return ids
}

func TestAddStepDefaults(t *testing.T) {
	e := testEngine()
	f := models.Funnel{ID: "fn_test"}

	f = e.AddStep(f, models.StepTypeQuestion, -1)
	q := f.Steps[0]
	if q.Title != DefaultStepTitle || q.ButtonText != DefaultButtonText {
		t.Errorf("unexpected question defaults: %+v", q)
	}
	if len(q.Options) != 1 || q.Options[0].Score != 0 {
		t.Errorf("question must start with one zero-score option, got %+v", q.Options)
	}
	if q.Media.Type != models.MediaNone || q.Media.URL != "" {
		t.Errorf("new step must have no media, got %+v", q.Media)
	}

	f = e.AddStep(f, models.StepTypeLeadCapture, -1)
	lc := f.Steps[1]
	if len(lc.Fields) != 2 || !lc.HasField(models.FieldName) || !lc.HasField(models.FieldEmail) {
		t.Errorf("lead capture must default to name+email, got %+v", lc.Fields)
	}

	f = e.AddStep(f, models.StepTypeWelcome, -1)
	w := f.Steps[2]
	if w.Options != nil || w.Fields != nil || w.CalendarURL != "" {
		t.Errorf("welcome step must carry no variant payload, got %+v", w)
	}
}

func TestAddStepAtIndex(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	f = e.AddStep(f, models.StepTypeMessage, 1)
	if f.Steps[1].Type != models.StepTypeMessage {
		t.Errorf("step not inserted at index 1: %v", stepOrder(f))
	}
	if len(f.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(f.Steps))
	}
	// Out-of-range index appends.
	f = e.AddStep(f, models.StepTypeMessage, 42)
	if f.Steps[len(f.Steps)-1].Type != models.StepTypeMessage {
		t.Error("out-of-range index should append")
	}
}

func TestStepIDUniquenessAcrossMutations(t *testing.T) {
	e := NewEngine()
	f := models.Funnel{ID: "fn_test"}
	for i := 0; i < 10; i++ {
		f = e.AddStep(f, models.StepTypeQuestion, -1)
	}
	f = e.RemoveStep(f, f.Steps[3].ID)
	f = e.RemoveStep(f, f.Steps[0].ID)
	for i := 0; i < 5; i++ {
		f = e.AddStep(f, models.StepTypeMessage, 0)
	}
	for _, v := range f.Validate() {
		t.Errorf("unexpected violation after add/remove sequence: %v", v)
	}
}

func TestOperationsArePure(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	before := stepOrder(f)

	_ = e.AddStep(f, models.StepTypeMessage, 0)
	_ = e.RemoveStep(f, f.Steps[0].ID)
	_ = e.MoveStep(f, 0, MoveDown)
	title := "changed"
	_ = e.UpdateStep(f, f.Steps[0].ID, StepPatch{Title: &title})

	after := stepOrder(f)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("input funnel mutated: %v != %v", before, after)
		}
	}
	if f.Steps[0].Title == "changed" {
		t.Error("UpdateStep mutated its input")
	}
}

func TestMoveStepBoundaryNoOp(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	before := stepOrder(f)

	if got := stepOrder(e.MoveStep(f, 0, MoveUp)); !equal(got, before) {
		t.Errorf("moving first step up must be a no-op: %v", got)
	}
	last := len(f.Steps) - 1
	if got := stepOrder(e.MoveStep(f, last, MoveDown)); !equal(got, before) {
		t.Errorf("moving last step down must be a no-op: %v", got)
	}
	if got := stepOrder(e.MoveStep(f, 17, MoveUp)); !equal(got, before) {
		t.Errorf("out-of-range move must be a no-op: %v", got)
	}
}

func TestMoveStepSwapsNeighbors(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	moved := e.MoveStep(f, 1, MoveUp)
	if moved.Steps[0].ID != f.Steps[1].ID || moved.Steps[1].ID != f.Steps[0].ID {
		t.Errorf("expected swap of first two steps, got %v", stepOrder(moved))
	}
}

func TestUpdateStepUnknownIDNoOp(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	title := "ghost"
	out := e.UpdateStep(f, "st_missing", StepPatch{Title: &title})
	if !equal(stepOrder(out), stepOrder(f)) {
		t.Error("unknown id changed step order")
	}
	for i := range out.Steps {
		if out.Steps[i].Title != f.Steps[i].Title {
			t.Error("unknown id changed a step")
		}
	}
}

func TestUpdateStepNormalizesMedia(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	id := f.Steps[0].ID

	out := e.UpdateStep(f, id, StepPatch{Media: &models.MediaConfig{Type: models.MediaImage, URL: "https://x/img.png"}})
	if out.Steps[0].Media.URL != "https://x/img.png" {
		t.Fatalf("media not applied: %+v", out.Steps[0].Media)
	}
	// Switching back to none clears the orphaned URL.
	out = e.UpdateStep(out, id, StepPatch{Media: &models.MediaConfig{Type: models.MediaNone, URL: "https://x/img.png"}})
	if out.Steps[0].Media.URL != "" {
		t.Errorf("media url must be cleared when type is none, got %q", out.Steps[0].Media.URL)
	}
}

func TestOptionMutations(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	q := f.Steps[1].ID

	f = e.AddOption(f, q, "Plus de 10k", 15)
	step := f.StepByID(q)
	if len(step.Options) != 2 || step.Options[1].Score != 15 {
		t.Fatalf("option not added: %+v", step.Options)
	}

	score := 25
	f = e.UpdateOption(f, q, step.Options[1].ID, OptionPatch{Score: &score})
	if f.StepByID(q).Options[1].Score != 25 {
		t.Error("option score not updated")
	}

	text := "Entre 1k et 10k"
	f = e.UpdateOption(f, q, step.Options[1].ID, OptionPatch{Text: &text})
	if f.StepByID(q).Options[1].Text != text {
		t.Error("option text not updated")
	}

	f = e.RemoveOption(f, q, step.Options[0].ID)
	if len(f.StepByID(q).Options) != 1 || f.StepByID(q).Options[0].Text != text {
		t.Errorf("option not removed: %+v", f.StepByID(q).Options)
	}

	// Adding an option to a non-question step is a no-op.
	welcome := f.Steps[0].ID
	f = e.AddOption(f, welcome, "nope", 1)
	if f.Steps[0].Options != nil {
		t.Error("AddOption on welcome step must be a no-op")
	}
}

func TestToggleCapturedField(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	lc := f.Steps[2].ID

	f = e.ToggleCapturedField(f, lc, models.FieldPhone)
	if !f.StepByID(lc).HasField(models.FieldPhone) {
		t.Fatal("phone field not added")
	}
	f = e.ToggleCapturedField(f, lc, models.FieldPhone)
	if f.StepByID(lc).HasField(models.FieldPhone) {
		t.Fatal("phone field not removed on second toggle")
	}
	// Toggling twice more never duplicates.
	f = e.ToggleCapturedField(f, lc, models.FieldEmail)
	f = e.ToggleCapturedField(f, lc, models.FieldEmail)
	count := 0
	for _, fld := range f.StepByID(lc).Fields {
		if fld == models.FieldEmail {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected email exactly once, got %d", count)
	}
}

func TestEditorSelectionOnRemove(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	ed := NewEditor(e, f)

	middle := f.Steps[1].ID
	ed.Select(middle)
	ed.RemoveStep(middle)

	sel := ed.Selected()
	if sel == "" || sel == middle {
		t.Fatalf("selection must move to a remaining step, got %q", sel)
	}
	// Prefers the step that followed the removed one.
	if sel != f.Steps[2].ID {
		t.Errorf("expected selection on following step %q, got %q", f.Steps[2].ID, sel)
	}
	draft := ed.Draft()
	if draft.StepIndex(sel) < 0 {
		t.Error("selection points at a non-existent step")
	}
}

func TestEditorRemoveLastStep(t *testing.T) {
	e := testEngine()
	f := models.Funnel{ID: "fn_test"}
	f = e.AddStep(f, models.StepTypeWelcome, -1)
	ed := NewEditor(e, f)

	ed.RemoveStep(f.Steps[0].ID)
	if got := ed.Selected(); got != "" {
		t.Errorf("expected empty selection after removing last step, got %q", got)
	}
	if len(ed.Draft().Steps) != 0 {
		t.Error("draft should have zero steps")
	}
	// Editing an empty draft must not panic.
	ed.RemoveStep("st_missing")
	ed.MoveStep("st_missing", MoveDown)
}

func TestEditorRemoveLastOfManySelectsPreceding(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	ed := NewEditor(e, f)

	last := f.Steps[2].ID
	ed.Select(last)
	ed.RemoveStep(last)
	if got := ed.Selected(); got != f.Steps[1].ID {
		t.Errorf("expected preceding step %q selected, got %q", f.Steps[1].ID, got)
	}
}

func TestEditorDraftIsIsolated(t *testing.T) {
	e := testEngine()
	f := baseFunnel(e)
	ed := NewEditor(e, f)

	title := "edited"
	ed.UpdateStep(f.Steps[0].ID, StepPatch{Title: &title})
	if f.Steps[0].Title == "edited" {
		t.Error("editor leaked edits into the source funnel")
	}
	d := ed.Draft()
	d.Steps[0].Title = "tampered"
	if ed.Draft().Steps[0].Title == "tampered" {
		t.Error("Draft must return an isolated copy")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
