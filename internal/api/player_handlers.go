// Package api provides playthrough session handlers for FunnelForge
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/player"
	"github.com/numtema/funnelforge/internal/util"
)

// sessionView is the visitor-facing projection of a playthrough state. The
// step payload carries everything the renderer needs; answers stay server
// side.
type sessionView struct {
	SessionID string             `json:"session_id"`
	FunnelID  string             `json:"funnel_id"`
	Done      bool               `json:"done"`
	Step      *models.FunnelStep `json:"step,omitempty"`
	StepIndex int                `json:"step_index"`
	StepCount int                `json:"step_count"`
	Score     int                `json:"score"`
	Segment   string             `json:"segment,omitempty"`
}

// viewOf projects a player state for the wire.
func viewOf(sessionID string, s player.State) sessionView {
	view := sessionView{
		SessionID: sessionID,
		FunnelID:  s.Funnel.ID,
		Done:      player.IsDone(s),
		Step:      player.CurrentStep(s),
		StepIndex: s.Funnel.StepIndex(s.CurrentStepID),
		StepCount: len(s.Funnel.Steps),
		Score:     player.Score(s),
	}
	if view.Done && s.Funnel.Settings.Scoring.ShowSegment {
		if seg, ok := player.FinalSegment(s); ok {
			view.Segment = seg.Label
		}
	}
	return view
}

// playHandler routes playthrough endpoints:
//
//	POST /play/{token}/start
//	GET  /play/sessions/{id}
//	POST /play/sessions/{id}/advance
//	POST /play/sessions/{id}/retreat
func (s *Server) playHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.playHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/play/")
	segments := strings.Split(path, "/")

	if len(segments) == 2 && segments[0] == "sessions" && r.Method == http.MethodGet {
		s.getSessionHandler(w, r, segments[1])
		return
	}
	if len(segments) == 2 && segments[1] == "start" {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.startSessionHandler(w, r, segments[0])
		return
	}
	if len(segments) == 3 && segments[0] == "sessions" {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		switch segments[2] {
		case "advance":
			s.advanceSessionHandler(w, r, segments[1])
			return
		case "retreat":
			s.retreatSessionHandler(w, r, segments[1])
			return
		}
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown play endpoint"))
}

// startSessionHandler handles POST /play/{token}/start. Starting a session
// counts one view on the funnel.
func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request, token string) {
	f, err := s.st.GetFunnelByShareToken(token)
	if err != nil {
		slog.Error("Server.startSessionHandler store error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if f == nil || f.Status != models.StatusPublished {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}

	state, err := player.Start(*f)
	if err != nil {
		slog.Warn("Server.startSessionHandler cannot start playthrough", "error", err, "funnelID", f.ID)
		writeJSONResponse(w, http.StatusConflict, models.Error("Funnel has no steps"))
		return
	}

	sessionID := util.GenerateSessionID()
	s.mu.Lock()
	s.sessions[sessionID] = state
	s.mu.Unlock()

	if err := s.st.IncrementViews(f.ID); err != nil {
		slog.Error("Server.startSessionHandler failed to count view", "error", err, "funnelID", f.ID)
	}

	slog.Info("Server.startSessionHandler session started", "sessionID", sessionID, "funnelID", f.ID)
	writeJSONResponse(w, http.StatusCreated, models.Created(viewOf(sessionID, state)))
}

// getSessionHandler handles GET /play/sessions/{id}.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(sessionID, state)))
}

// advanceSessionHandler handles POST /play/sessions/{id}/advance. When the
// advance crosses a lead capture step, the lead is persisted, counted as a
// conversion and forwarded to the notifier. Notification failures never
// break the visitor flow.
func (s *Server) advanceSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	var resp player.Response
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		slog.Warn("Server.advanceSessionHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	next, lead := player.Advance(state, &resp)
	if lead != nil {
		// A contactless submission stays on the capture step.
		if err := lead.Validate(); err != nil {
			s.mu.Unlock()
			slog.Warn("Server.advanceSessionHandler lead rejected", "error", err, "sessionID", sessionID)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}
	s.mu.Unlock()

	if lead != nil {
		saved, err := s.st.AddLead(*lead)
		if err != nil {
			// The session stays on the capture step so the visitor can
			// resubmit; committing it here would drop the contact details.
			slog.Error("Server.advanceSessionHandler failed to persist lead", "error", err, "funnelID", lead.FunnelID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save lead"))
			return
		}
		if err := s.st.IncrementConversions(lead.FunnelID); err != nil {
			slog.Error("Server.advanceSessionHandler failed to count conversion", "error", err, "funnelID", lead.FunnelID)
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyLead(context.Background(), next.Funnel, saved); err != nil {
				slog.Error("Server.advanceSessionHandler lead notification failed", "error", err, "leadID", saved.ID)
			}
		}
		slog.Info("Server.advanceSessionHandler lead captured", "sessionID", sessionID, "leadID", saved.ID, "score", saved.Score)
	}

	s.mu.Lock()
	s.sessions[sessionID] = next
	s.mu.Unlock()

	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(sessionID, next)))
}

// retreatSessionHandler handles POST /play/sessions/{id}/retreat.
func (s *Server) retreatSessionHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	next := player.Retreat(state)
	s.sessions[sessionID] = next
	s.mu.Unlock()

	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(sessionID, next)))
}
