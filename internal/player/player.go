// Package player implements the funnel traversal and scoring state machine.
//
// A playthrough is a value: Start produces the initial State from a
// published funnel snapshot, and Advance/Retreat are pure transitions from
// one State to the next. Nothing here blocks or touches shared state, so
// concurrent playthroughs of the same funnel are fully independent; the lead
// side effect is surfaced as a return value for the caller to persist.
package player

import (
	"errors"
	"time"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
)

// ErrEmptyFunnel is returned by Start when the funnel has no steps: there is
// no defined initial state, so traversal construction fails fast instead of
// producing a machine with an undefined current step.
var ErrEmptyFunnel = errors.New("funnel has no steps to traverse")

// Response is the end-user input accompanying an Advance. For question steps
// it names the chosen option; for lead-capture steps it carries the contact
// payload. Steps without input (welcome, message, calendar) advance with a
// nil response.
type Response struct {
	// Question answer.
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
	Score    int    `json:"score,omitempty"`

	// Lead capture payload.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// State is one point in a playthrough: the immutable funnel snapshot, the
// current position, and the answers recorded so far. The running score is
// not stored; it is recomputed as the sum over current answers so that
// retreating and re-answering a question replaces its contribution instead
// of accumulating additively.
type State struct {
	Funnel        models.Funnel            `json:"funnel"`
	CurrentStepID string                   `json:"current_step_id"`
	Answers       map[string]models.Answer `json:"answers"`
	Done          bool                     `json:"done"`
}

// Start begins a playthrough of the given funnel. The funnel is cloned so
// edits to the caller's document cannot reach a session in progress.
func Start(f models.Funnel) (State, error) {
	if len(f.Steps) == 0 {
		return State{}, ErrEmptyFunnel
	}
	snapshot := f.Clone()
	return State{
		Funnel:        snapshot,
		CurrentStepID: snapshot.Steps[0].ID,
		Answers:       map[string]models.Answer{},
	}, nil
}

// CurrentStep returns the step the playthrough is on, or nil once done.
func CurrentStep(s State) *models.FunnelStep {
	if s.Done {
		return nil
	}
	return s.Funnel.StepByID(s.CurrentStepID)
}

// IsDone reports whether the playthrough has traversed every step.
func IsDone(s State) bool {
	return s.Done
}

// Score returns the accumulated score: the sum of the recorded per-step
// contributions.
func Score(s State) int {
	total := 0
	for _, a := range s.Answers {
		total += a.Score
	}
	return total
}

// Advance records the response against the current step and moves to the
// next one. On the last step it transitions to the terminal done state
// instead. When the current step is a lead-capture and a contact payload is
// present, the captured lead is returned for the caller to persist and
// notify; the engine itself performs no I/O. Advancing a finished
// playthrough is a no-op.
//
// A question step with no options cannot produce a valid response; an
// answerless Advance on it behaves like a message step so a playthrough can
// never deadlock.
func Advance(s State, resp *Response) (State, *models.Lead) {
	if s.Done {
		return s, nil
	}
	idx := s.Funnel.StepIndex(s.CurrentStepID)
	if idx < 0 {
		// Snapshot and position disagree; treat as terminal rather than loop.
		s.Done = true
		return s, nil
	}
	step := s.Funnel.Steps[idx]

	var lead *models.Lead
	switch {
	case step.Type == models.StepTypeQuestion && resp != nil:
		s.Answers = cloneAnswers(s.Answers)
		s.Answers[step.ID] = answerFor(&step, resp)
	case step.Type == models.StepTypeLeadCapture && resp != nil:
		lead = captureLead(s, &step, resp)
	}

	if idx == len(s.Funnel.Steps)-1 {
		s.Done = true
		return s, lead
	}
	s.CurrentStepID = s.Funnel.Steps[idx+1].ID
	return s, lead
}

// Retreat moves back to the previous step. It is a no-op on the first step
// and on a finished playthrough. Recorded answers are kept: re-answering the
// question after retreating overwrites its contribution in Advance.
func Retreat(s State) State {
	if s.Done {
		return s
	}
	idx := s.Funnel.StepIndex(s.CurrentStepID)
	if idx <= 0 {
		return s
	}
	s.CurrentStepID = s.Funnel.Steps[idx-1].ID
	return s
}

// FinalSegment classifies the playthrough's score against the funnel's
// configured segments. The second return is false when scoring is disabled
// or no segment range contains the score (unclassified).
func FinalSegment(s State) (models.Segment, bool) {
	if !s.Funnel.Settings.Scoring.Enabled {
		return models.Segment{}, false
	}
	return Classify(Score(s), s.Funnel.Settings.Scoring.Segments)
}

// Classify returns the first segment whose inclusive [Min, Max] range
// contains score, evaluating segments in authoring order: when ranges
// overlap, the earliest listed wins. A score outside every range yields
// (zero Segment, false), the explicit unclassified result.
func Classify(score int, segments []models.Segment) (models.Segment, bool) {
	for _, seg := range segments {
		if seg.Contains(score) {
			return seg, true
		}
	}
	return models.Segment{}, false
}

// answerFor resolves the recorded answer for a question response. When the
// response names an option that exists on the step, the step's own text and
// score are authoritative; otherwise the response values are taken as-is.
func answerFor(step *models.FunnelStep, resp *Response) models.Answer {
	if resp.OptionID != "" {
		if opt := step.OptionByID(resp.OptionID); opt != nil {
			return models.Answer{OptionID: opt.ID, Text: opt.Text, Score: opt.Score}
		}
	}
	return models.Answer{OptionID: resp.OptionID, Text: resp.Text, Score: resp.Score}
}

// captureLead freezes the lead record at the moment of submission.
func captureLead(s State, step *models.FunnelStep, resp *Response) *models.Lead {
	lead := &models.Lead{
		ID:        util.GenerateLeadID(),
		FunnelID:  s.Funnel.ID,
		Name:      resp.Name,
		Email:     resp.Email,
		Status:    models.LeadStatusNew,
		Score:     Score(s),
		Answers:   cloneAnswers(s.Answers),
		CreatedAt: time.Now().UTC(),
	}
	if step.HasField(models.FieldPhone) {
		lead.Phone = resp.Phone
	}
	if seg, ok := FinalSegment(s); ok {
		lead.Segment = seg.Label
	}
	return lead
}

func cloneAnswers(in map[string]models.Answer) map[string]models.Answer {
	out := make(map[string]models.Answer, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
