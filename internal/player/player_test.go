package player

import (
	"errors"
	"testing"

	"github.com/numtema/funnelforge/internal/models"
)

func scoredFunnel() models.Funnel {
	return models.Funnel{
		ID:   "fn_test",
		Name: "Diagnostic",
		Steps: []models.FunnelStep{
			{ID: "st_welcome", Type: models.StepTypeWelcome, Title: "Bienvenue", ButtonText: "Continuer"},
			{ID: "st_q1", Type: models.StepTypeQuestion, Title: "Votre budget ?", Options: []models.QuestionOption{
				{ID: "op_a", Text: "A", Score: 5},
				{ID: "op_b", Text: "B", Score: 15},
			}},
			{ID: "st_capture", Type: models.StepTypeLeadCapture, Title: "Vos coordonnées", Fields: []models.CapturedField{models.FieldName, models.FieldEmail}},
		},
		Settings: models.DefaultSettings(),
		Status:   models.StatusPublished,
	}
}

func TestStartEmptyFunnel(t *testing.T) {
	_, err := Start(models.Funnel{ID: "fn_empty"})
	if !errors.Is(err, ErrEmptyFunnel) {
		t.Fatalf("expected ErrEmptyFunnel, got %v", err)
	}
}

func TestStartInitialState(t *testing.T) {
	s, err := Start(scoredFunnel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CurrentStepID != "st_welcome" {
		t.Errorf("expected first step selected, got %q", s.CurrentStepID)
	}
	if Score(s) != 0 || len(s.Answers) != 0 || IsDone(s) {
		t.Error("initial state must have zero score, no answers and not be done")
	}
}

func TestStartSnapshotsFunnel(t *testing.T) {
	f := scoredFunnel()
	s, _ := Start(f)
	// Edits after start must not be visible to the session.
	f.Steps[1].Options[0].Score = 1000
	if got := s.Funnel.Steps[1].Options[0].Score; got != 5 {
		t.Errorf("session saw a post-start edit: score %d", got)
	}
}

// Repeated Advance from the initial state reaches done in exactly N advances.
func TestTraversalTermination(t *testing.T) {
	f := scoredFunnel()
	s, _ := Start(f)
	for i := 0; i < len(f.Steps); i++ {
		if IsDone(s) {
			t.Fatalf("done after %d advances, expected %d", i, len(f.Steps))
		}
		s, _ = Advance(s, nil)
	}
	if !IsDone(s) {
		t.Fatal("not done after N advances")
	}
	// Advancing a finished playthrough is a no-op.
	s2, lead := Advance(s, nil)
	if !IsDone(s2) || lead != nil {
		t.Error("advance past done must be a no-op")
	}
	if CurrentStep(s2) != nil {
		t.Error("CurrentStep must be nil once done")
	}
}

func TestScoreAccumulation(t *testing.T) {
	f := models.Funnel{
		ID: "fn_sum",
		Steps: []models.FunnelStep{
			{ID: "st_q1", Type: models.StepTypeQuestion, Options: []models.QuestionOption{{ID: "op_1", Text: "x", Score: 10}}},
			{ID: "st_q2", Type: models.StepTypeQuestion, Options: []models.QuestionOption{{ID: "op_2", Text: "y", Score: 20}}},
			{ID: "st_lc", Type: models.StepTypeLeadCapture, Fields: []models.CapturedField{models.FieldEmail}},
		},
		Settings: models.DefaultSettings(),
	}
	s, _ := Start(f)
	s, _ = Advance(s, &Response{OptionID: "op_1"})
	s, _ = Advance(s, &Response{OptionID: "op_2"})
	if got := Score(s); got != 30 {
		t.Fatalf("expected score 30 at lead capture, got %d", got)
	}
	s, lead := Advance(s, &Response{Email: "jo@x.com"})
	if lead == nil || lead.Score != 30 {
		t.Fatalf("expected captured lead with score 30, got %+v", lead)
	}
	if !IsDone(s) {
		t.Error("expected done after final step")
	}
}

func TestClassifyDeterminism(t *testing.T) {
	segments := []models.Segment{
		{Label: "Froid", Min: 0, Max: 30},
		{Label: "Tiède", Min: 31, Max: 70},
		{Label: "Chaud", Min: 71, Max: 100},
	}
	cases := []struct {
		score int
		label string
		ok    bool
	}{
		{0, "Froid", true},
		{30, "Froid", true},
		{31, "Tiède", true},
		{100, "Chaud", true},
		{150, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		seg, ok := Classify(tc.score, segments)
		if ok != tc.ok || seg.Label != tc.label {
			t.Errorf("Classify(%d) = (%q, %v), expected (%q, %v)", tc.score, seg.Label, ok, tc.label, tc.ok)
		}
	}
}

func TestClassifyOverlapEarliestWins(t *testing.T) {
	segments := []models.Segment{
		{Label: "First", Min: 0, Max: 50},
		{Label: "Second", Min: 40, Max: 100},
	}
	seg, ok := Classify(45, segments)
	if !ok || seg.Label != "First" {
		t.Errorf("overlapping ranges must resolve to the earliest listed, got %q", seg.Label)
	}
}

func TestRetreatBoundaries(t *testing.T) {
	s, _ := Start(scoredFunnel())
	// Retreat on the first step is a no-op.
	if got := Retreat(s); got.CurrentStepID != "st_welcome" {
		t.Errorf("retreat on first step moved to %q", got.CurrentStepID)
	}
	s, _ = Advance(s, nil)
	s = Retreat(s)
	if s.CurrentStepID != "st_welcome" {
		t.Errorf("expected back on welcome, got %q", s.CurrentStepID)
	}
}

// Going back and re-answering a question replaces its previous contribution;
// the total is the sum over current answers, never an append-only
// accumulation.
func TestRetreatReanswerReplacesContribution(t *testing.T) {
	s, _ := Start(scoredFunnel())
	s, _ = Advance(s, nil)                           // past welcome
	s, _ = Advance(s, &Response{OptionID: "op_b"})   // 15
	s = Retreat(s)                                   // back on the question
	s, _ = Advance(s, &Response{OptionID: "op_a"})   // re-answer: 5
	if got := Score(s); got != 5 {
		t.Fatalf("expected re-answer to replace contribution (score 5), got %d", got)
	}
	if len(s.Answers) != 1 {
		t.Errorf("expected one recorded answer, got %d", len(s.Answers))
	}
}

func TestZeroOptionQuestionPassesThrough(t *testing.T) {
	f := models.Funnel{
		ID: "fn_dead",
		Steps: []models.FunnelStep{
			{ID: "st_q", Type: models.StepTypeQuestion}, // no options
			{ID: "st_m", Type: models.StepTypeMessage},
		},
	}
	s, _ := Start(f)
	s, _ = Advance(s, nil)
	if s.CurrentStepID != "st_m" {
		t.Fatalf("answerless advance on an option-less question must pass through, got %q", s.CurrentStepID)
	}
	if Score(s) != 0 {
		t.Error("pass-through must not affect the score")
	}
}

func TestUnknownOptionFallsBackToResponseValues(t *testing.T) {
	s, _ := Start(scoredFunnel())
	s, _ = Advance(s, nil)
	s, _ = Advance(s, &Response{OptionID: "op_ghost", Text: "libre", Score: 7})
	if got := Score(s); got != 7 {
		t.Errorf("expected raw response score 7, got %d", got)
	}
}

func TestKnownOptionIsAuthoritative(t *testing.T) {
	s, _ := Start(scoredFunnel())
	s, _ = Advance(s, nil)
	// A tampered client-side score must not override the document's value.
	s, _ = Advance(s, &Response{OptionID: "op_b", Score: 9999})
	if got := Score(s); got != 15 {
		t.Errorf("expected document score 15, got %d", got)
	}
}

// Full scenario: welcome, scored question, lead capture.
func TestFullPlaythroughScenario(t *testing.T) {
	s, err := Start(scoredFunnel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ = Advance(s, nil) // past welcome
	s, _ = Advance(s, &Response{OptionID: "op_b"})
	s, lead := Advance(s, &Response{Name: "Jo", Email: "jo@x.com"})

	if !IsDone(s) {
		t.Fatal("expected done after lead capture on last step")
	}
	if lead == nil {
		t.Fatal("expected a captured lead")
	}
	if lead.Name != "Jo" || lead.Email != "jo@x.com" || lead.Score != 15 {
		t.Errorf("unexpected lead: %+v", lead)
	}
	answer, ok := lead.Answers["st_q1"]
	if !ok || answer.Score != 15 || answer.OptionID != "op_b" {
		t.Errorf("unexpected recorded answer: %+v", lead.Answers)
	}
	if lead.Status != models.LeadStatusNew {
		t.Errorf("expected new lead status, got %q", lead.Status)
	}
	// Score 15 lands in the default "Froid" 0-30 segment.
	if lead.Segment != "Froid" {
		t.Errorf("expected segment Froid, got %q", lead.Segment)
	}
	if err := lead.Validate(); err != nil {
		t.Errorf("captured lead failed validation: %v", err)
	}
}

func TestLeadOmitsUnrequestedPhone(t *testing.T) {
	s, _ := Start(scoredFunnel())
	s, _ = Advance(s, nil)
	s, _ = Advance(s, &Response{OptionID: "op_a"})
	_, lead := Advance(s, &Response{Name: "Jo", Email: "jo@x.com", Phone: "+33600000000"})
	if lead == nil {
		t.Fatal("expected a captured lead")
	}
	// The capture step requests name+email only.
	if lead.Phone != "" {
		t.Errorf("phone was not requested but recorded: %q", lead.Phone)
	}
}

func TestFinalSegmentDisabledScoring(t *testing.T) {
	f := scoredFunnel()
	f.Settings.Scoring.Enabled = false
	s, _ := Start(f)
	if _, ok := FinalSegment(s); ok {
		t.Error("expected no segment when scoring is disabled")
	}
}
