package models

import (
	"errors"
	"testing"
)

func playableFunnel() Funnel {
	return Funnel{
		ID:   "fn_test",
		Name: "Demo",
		Steps: []FunnelStep{
			{ID: "st_a", Type: StepTypeWelcome, Title: "Bienvenue", ButtonText: "Continuer", Media: MediaConfig{Type: MediaNone}},
			{ID: "st_b", Type: StepTypeQuestion, Title: "Budget ?", Media: MediaConfig{Type: MediaNone}, Options: []QuestionOption{
				{ID: "op_1", Text: "Moins de 1k", Score: 5},
				{ID: "op_2", Text: "Plus de 10k", Score: 15},
			}},
			{ID: "st_c", Type: StepTypeLeadCapture, Title: "Vos coordonnées", Media: MediaConfig{Type: MediaNone}, Fields: []CapturedField{FieldName, FieldEmail}},
		},
		Settings: DefaultSettings(),
		Status:   StatusDraft,
	}
}

func hasViolation(violations []error, target error) bool {
	for _, v := range violations {
		if errors.Is(v, target) {
			return true
		}
	}
	return false
}

func TestValidatePlayableFunnel(t *testing.T) {
	f := playableFunnel()
	if violations := f.Validate(); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestValidateEmptyFunnel(t *testing.T) {
	f := Funnel{ID: "fn_empty"}
	violations := f.Validate()
	if !hasViolation(violations, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", violations)
	}
}

func TestValidateDuplicateStepIDs(t *testing.T) {
	f := playableFunnel()
	f.Steps[2].ID = f.Steps[0].ID
	if !hasViolation(f.Validate(), ErrDuplicateStepID) {
		t.Error("expected ErrDuplicateStepID")
	}
}

func TestValidateDuplicateOptionIDs(t *testing.T) {
	f := playableFunnel()
	f.Steps[1].Options[1].ID = f.Steps[1].Options[0].ID
	if !hasViolation(f.Validate(), ErrDuplicateOptionID) {
		t.Error("expected ErrDuplicateOptionID")
	}
}

func TestValidateQuestionWithoutOptions(t *testing.T) {
	f := playableFunnel()
	f.Steps[1].Options = nil
	if !hasViolation(f.Validate(), ErrQuestionWithoutOptions) {
		t.Error("expected ErrQuestionWithoutOptions")
	}
}

func TestValidateLeadCaptureWithoutFields(t *testing.T) {
	f := playableFunnel()
	f.Steps[2].Fields = nil
	if !hasViolation(f.Validate(), ErrLeadCaptureWithoutFields) {
		t.Error("expected ErrLeadCaptureWithoutFields")
	}
}

func TestValidateCalendarWithoutURL(t *testing.T) {
	f := playableFunnel()
	f.Steps = append(f.Steps, FunnelStep{ID: "st_cal", Type: StepTypeCalendar, Media: MediaConfig{Type: MediaNone}})
	if !hasViolation(f.Validate(), ErrCalendarWithoutURL) {
		t.Error("expected ErrCalendarWithoutURL")
	}
}

func TestValidateOrphanMediaURL(t *testing.T) {
	f := playableFunnel()
	f.Steps[0].Media = MediaConfig{Type: MediaNone, URL: "https://example.com/a.png"}
	if !hasViolation(f.Validate(), ErrOrphanMediaURL) {
		t.Error("expected ErrOrphanMediaURL")
	}
}

func TestValidateInvalidStepType(t *testing.T) {
	f := playableFunnel()
	f.Steps[0].Type = "retargeting"
	if !hasViolation(f.Validate(), ErrInvalidStepType) {
		t.Error("expected ErrInvalidStepType")
	}
}

func TestValidateNeverPanicsOnZeroValue(t *testing.T) {
	var f Funnel
	// Zero-step funnels are reported, not fatal.
	if violations := f.Validate(); len(violations) == 0 {
		t.Error("expected at least one violation on zero value")
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := playableFunnel()
	f.Settings.Pixels = map[string]string{"meta": "12345"}

	clone := f.Clone()
	clone.Steps[1].Options[0].Score = 99
	clone.Steps[2].Fields[0] = FieldPhone
	clone.Settings.Scoring.Segments[0].Max = 999
	clone.Settings.Pixels["meta"] = "override"

	if f.Steps[1].Options[0].Score != 5 {
		t.Error("clone shares option storage with original")
	}
	if f.Steps[2].Fields[0] != FieldName {
		t.Error("clone shares field storage with original")
	}
	if f.Settings.Scoring.Segments[0].Max != 30 {
		t.Error("clone shares segment storage with original")
	}
	if f.Settings.Pixels["meta"] != "12345" {
		t.Error("clone shares pixel map with original")
	}
}

func TestStepLookupHelpers(t *testing.T) {
	f := playableFunnel()
	if idx := f.StepIndex("st_b"); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	if idx := f.StepIndex("st_missing"); idx != -1 {
		t.Errorf("expected -1 for unknown step, got %d", idx)
	}
	if step := f.StepByID("st_c"); step == nil || step.Type != StepTypeLeadCapture {
		t.Error("StepByID returned wrong step")
	}
	if f.Steps[2].HasField(FieldPhone) {
		t.Error("HasField reported a field the step does not request")
	}
	if opt := f.Steps[1].OptionByID("op_2"); opt == nil || opt.Score != 15 {
		t.Error("OptionByID returned wrong option")
	}
}

func TestSegmentContains(t *testing.T) {
	seg := Segment{Label: "Tiède", Min: 31, Max: 70}
	if seg.Contains(30) || !seg.Contains(31) || !seg.Contains(70) || seg.Contains(71) {
		t.Error("segment bounds must be inclusive")
	}
}

func TestLeadValidate(t *testing.T) {
	lead := Lead{FunnelID: "fn_x", Email: "jo@x.com"}
	if err := lead.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	lead = Lead{Email: "jo@x.com"}
	if err := lead.Validate(); !errors.Is(err, ErrLeadMissingFunnel) {
		t.Errorf("expected ErrLeadMissingFunnel, got %v", err)
	}
	lead = Lead{FunnelID: "fn_x"}
	if err := lead.Validate(); !errors.Is(err, ErrLeadMissingContact) {
		t.Errorf("expected ErrLeadMissingContact, got %v", err)
	}
}
