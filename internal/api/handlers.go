// Package api provides funnel authoring handlers for FunnelForge endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/numtema/funnelforge/internal/authoring"
	"github.com/numtema/funnelforge/internal/models"
	"github.com/numtema/funnelforge/internal/util"
)

// funnelsHandler handles the funnel collection (GET, POST /funnels).
func (s *Server) funnelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.funnelsHandler invoked", "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodGet:
		s.listFunnelsHandler(w, r)
	case http.MethodPost:
		s.createFunnelHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

// funnelHandler routes per-funnel operations (/funnels/{id}[/publish|/mutations|/leads|/validate]).
func (s *Server) funnelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.funnelHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/funnels/")
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Missing funnel id"))
		return
	}
	funnelID := segments[0]

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.getFunnelHandler(w, r, funnelID)
		case http.MethodPut:
			s.updateFunnelHandler(w, r, funnelID)
		case http.MethodDelete:
			s.deleteFunnelHandler(w, r, funnelID)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	if len(segments) == 2 {
		switch segments[1] {
		case "publish":
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
				return
			}
			s.publishFunnelHandler(w, r, funnelID)
			return
		case "mutations":
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
				return
			}
			s.mutateFunnelHandler(w, r, funnelID)
			return
		case "validate":
			if r.Method != http.MethodGet {
				w.Header().Set("Allow", "GET")
				writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
				return
			}
			s.validateFunnelHandler(w, r, funnelID)
			return
		case "leads":
			if r.Method != http.MethodGet {
				w.Header().Set("Allow", "GET")
				writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
				return
			}
			s.funnelLeadsHandler(w, r, funnelID)
			return
		}
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown funnel endpoint"))
}

// listFunnelsHandler handles GET /funnels.
func (s *Server) listFunnelsHandler(w http.ResponseWriter, r *http.Request) {
	funnels, err := s.st.ListFunnels()
	if err != nil {
		slog.Error("Server.listFunnelsHandler store error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list funnels"))
		return
	}
	slog.Debug("Server.listFunnelsHandler returning funnels", "count", len(funnels))
	writeJSONResponse(w, http.StatusOK, models.Success(funnels))
}

// createFunnelRequest is the POST /funnels payload. A funnel starts as a
// draft; steps are added through the mutation endpoint.
type createFunnelRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Settings    *models.FunnelSettings `json:"settings,omitempty"`
	Steps       []models.FunnelStep    `json:"steps,omitempty"`
}

// createFunnelHandler handles POST /funnels.
func (s *Server) createFunnelHandler(w http.ResponseWriter, r *http.Request) {
	var req createFunnelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createFunnelHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: name"))
		return
	}

	f := models.Funnel{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Status:      models.StatusDraft,
		Settings:    models.DefaultSettings(),
	}
	if req.Settings != nil {
		f.Settings = *req.Settings
	}

	saved, err := s.st.SaveFunnel(f)
	if err != nil {
		slog.Error("Server.createFunnelHandler store error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save funnel"))
		return
	}
	slog.Info("Server.createFunnelHandler funnel created", "funnelID", saved.ID, "name", saved.Name)
	writeJSONResponse(w, http.StatusCreated, models.Created(saved))
}

// getFunnelHandler handles GET /funnels/{id}.
func (s *Server) getFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	f, err := s.st.GetFunnel(funnelID)
	if err != nil {
		slog.Error("Server.getFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if f == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(f))
}

// updateFunnelHandler handles PUT /funnels/{id}, replacing the document
// wholesale. Fine-grained edits go through the mutation endpoint instead.
func (s *Server) updateFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	existing, err := s.st.GetFunnel(funnelID)
	if err != nil {
		slog.Error("Server.updateFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if existing == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}

	var f models.Funnel
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		slog.Warn("Server.updateFunnelHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	// Identity and counters are server-owned.
	f.ID = existing.ID
	f.CreatedAt = existing.CreatedAt
	f.ShareToken = existing.ShareToken
	f.Views = existing.Views
	f.Conversions = existing.Conversions

	saved, err := s.st.SaveFunnel(f)
	if err != nil {
		slog.Error("Server.updateFunnelHandler save error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save funnel"))
		return
	}
	slog.Info("Server.updateFunnelHandler funnel replaced", "funnelID", funnelID)
	writeJSONResponse(w, http.StatusOK, models.Success(saved))
}

// deleteFunnelHandler handles DELETE /funnels/{id}.
func (s *Server) deleteFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	if err := s.st.DeleteFunnel(funnelID); err != nil {
		slog.Error("Server.deleteFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete funnel"))
		return
	}
	slog.Info("Server.deleteFunnelHandler funnel deleted", "funnelID", funnelID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Funnel deleted", nil))
}

// publishFunnelHandler handles POST /funnels/{id}/publish. Publishing
// assigns a share token on first publish and keeps it stable afterwards.
func (s *Server) publishFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	f, err := s.st.GetFunnel(funnelID)
	if err != nil {
		slog.Error("Server.publishFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if f == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}
	if len(f.Steps) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Cannot publish a funnel without steps"))
		return
	}

	f.Status = models.StatusPublished
	if f.ShareToken == "" {
		f.ShareToken = util.GenerateShareToken()
	}
	saved, err := s.st.SaveFunnel(*f)
	if err != nil {
		slog.Error("Server.publishFunnelHandler save error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save funnel"))
		return
	}
	slog.Info("Server.publishFunnelHandler funnel published", "funnelID", funnelID, "share_token", saved.ShareToken)
	writeJSONResponse(w, http.StatusOK, models.Success(saved))
}

// validateFunnelHandler handles GET /funnels/{id}/validate, returning the
// advisory issue list for the document.
func (s *Server) validateFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	f, err := s.st.GetFunnel(funnelID)
	if err != nil {
		slog.Error("Server.validateFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if f == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}

	issues := make([]string, 0)
	for _, verr := range f.Validate() {
		issues = append(issues, verr.Error())
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"valid":  len(issues) == 0,
		"issues": issues,
	}))
}

// mutationRequest is the POST /funnels/{id}/mutations payload. Action
// selects the operation; the remaining fields feed the matching engine call.
type mutationRequest struct {
	Action string `json:"action"`

	StepType  string               `json:"step_type,omitempty"`
	AtIndex   *int                 `json:"at_index,omitempty"`
	StepID    string               `json:"step_id,omitempty"`
	Index     *int                 `json:"index,omitempty"`
	Direction string               `json:"direction,omitempty"`
	Patch     *authoring.StepPatch `json:"patch,omitempty"`

	OptionID    string                 `json:"option_id,omitempty"`
	OptionText  string                 `json:"option_text,omitempty"`
	OptionScore int                    `json:"option_score,omitempty"`
	OptionPatch *authoring.OptionPatch `json:"option_patch,omitempty"`

	Field string `json:"field,omitempty"`
}

// mutateFunnelHandler handles POST /funnels/{id}/mutations. Invalid targets
// (unknown ids, out-of-range indexes) follow the engine's no-op semantics
// and still return the document.
func (s *Server) mutateFunnelHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.mutateFunnelHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	f, err := s.st.GetFunnel(funnelID)
	if err != nil {
		slog.Error("Server.mutateFunnelHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load funnel"))
		return
	}
	if f == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Funnel not found"))
		return
	}

	mutated, err := s.applyMutation(*f, req)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	saved, err := s.st.SaveFunnel(mutated)
	if err != nil {
		slog.Error("Server.mutateFunnelHandler save error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save funnel"))
		return
	}
	slog.Debug("Server.mutateFunnelHandler applied", "funnelID", funnelID, "action", req.Action)
	writeJSONResponse(w, http.StatusOK, models.Success(saved))
}

// applyMutation dispatches a mutation request to the authoring engine.
func (s *Server) applyMutation(f models.Funnel, req mutationRequest) (models.Funnel, error) {
	switch req.Action {
	case "add_step":
		stepType := models.StepType(req.StepType)
		if !models.IsValidStepType(stepType) {
			return f, fmt.Errorf("invalid step type: %q", req.StepType)
		}
		atIndex := len(f.Steps)
		if req.AtIndex != nil {
			atIndex = *req.AtIndex
		}
		return s.engine.AddStep(f, stepType, atIndex), nil
	case "remove_step":
		return s.engine.RemoveStep(f, req.StepID), nil
	case "move_step":
		index := -1
		if req.Index != nil {
			index = *req.Index
		} else if req.StepID != "" {
			index = f.StepIndex(req.StepID)
		}
		return s.engine.MoveStep(f, index, authoring.MoveDirection(req.Direction)), nil
	case "update_step":
		var patch authoring.StepPatch
		if req.Patch != nil {
			patch = *req.Patch
		}
		return s.engine.UpdateStep(f, req.StepID, patch), nil
	case "add_option":
		text := req.OptionText
		if text == "" {
			text = authoring.DefaultOptionText
		}
		return s.engine.AddOption(f, req.StepID, text, req.OptionScore), nil
	case "update_option":
		var patch authoring.OptionPatch
		if req.OptionPatch != nil {
			patch = *req.OptionPatch
		}
		return s.engine.UpdateOption(f, req.StepID, req.OptionID, patch), nil
	case "remove_option":
		return s.engine.RemoveOption(f, req.StepID, req.OptionID), nil
	case "toggle_field":
		return s.engine.ToggleCapturedField(f, req.StepID, models.CapturedField(req.Field)), nil
	}
	return f, fmt.Errorf("unknown mutation action: %q", req.Action)
}

// leadsHandler handles GET /leads.
func (s *Server) leadsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.leadsHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}
	leads, err := s.st.ListLeads()
	if err != nil {
		slog.Error("Server.leadsHandler store error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

// funnelLeadsHandler handles GET /funnels/{id}/leads.
func (s *Server) funnelLeadsHandler(w http.ResponseWriter, r *http.Request, funnelID string) {
	leads, err := s.st.ListLeadsByFunnel(funnelID)
	if err != nil {
		slog.Error("Server.funnelLeadsHandler store error", "error", err, "funnelID", funnelID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}
