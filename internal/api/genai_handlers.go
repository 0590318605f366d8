// Package api provides GenAI authoring-assistance handlers for FunnelForge
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/numtema/funnelforge/internal/models"
)

// requireGenAI checks method and client availability for a GenAI endpoint.
func (s *Server) requireGenAI(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return false
	}
	if s.gaClient == nil {
		slog.Warn("Server.requireGenAI: GenAI client not configured", "path", r.URL.Path)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("GenAI client not configured"))
		return false
	}
	return true
}

// enhanceHandler handles POST /genai/enhance. The stored document is never
// touched; the caller decides whether to apply the rewrite.
func (s *Server) enhanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !s.requireGenAI(w, r) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.enhanceHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: text"))
		return
	}

	enhanced, err := s.gaClient.EnhanceCopy(context.Background(), req.Text)
	if err != nil {
		slog.Error("Server.enhanceHandler generation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to enhance text"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"text": enhanced}))
}

// imagePromptHandler handles POST /genai/image-prompt.
func (s *Server) imagePromptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !s.requireGenAI(w, r) {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.imagePromptHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	prompt, err := s.gaClient.GenerateImagePrompt(context.Background(), req.Title, req.Description)
	if err != nil {
		slog.Error("Server.imagePromptHandler generation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate image prompt"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"prompt": prompt}))
}

// strategyHandler handles POST /genai/strategy. A usable draft is persisted
// as a new draft funnel; advisory validation issues ride along so the
// caller can surface them.
func (s *Server) strategyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !s.requireGenAI(w, r) {
		return
	}

	var req struct {
		Goal string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.strategyHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: goal"))
		return
	}

	draft, err := s.gaClient.GenerateStrategy(context.Background(), req.Goal)
	if err != nil {
		slog.Error("Server.strategyHandler generation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate funnel strategy"))
		return
	}

	issues := make([]string, 0)
	for _, verr := range draft.Validate() {
		issues = append(issues, verr.Error())
	}

	saved, err := s.st.SaveFunnel(draft)
	if err != nil {
		slog.Error("Server.strategyHandler store error", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save funnel"))
		return
	}
	slog.Info("Server.strategyHandler draft created", "funnelID", saved.ID, "steps", len(saved.Steps), "issues", len(issues))
	writeJSONResponse(w, http.StatusCreated, models.Created(map[string]interface{}{
		"funnel": saved,
		"issues": issues,
	}))
}
