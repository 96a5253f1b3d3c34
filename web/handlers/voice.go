package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ordervox/ordervox/internal/engine"
)

// VoiceHandlers serves the interpret/execute/feedback API on top of the
// voice engine.
type VoiceHandlers struct {
	engine *engine.VoiceEngine
}

// NewVoiceHandlers creates the voice API handlers.
func NewVoiceHandlers(e *engine.VoiceEngine) *VoiceHandlers {
	return &VoiceHandlers{engine: e}
}

// Interpret handles POST /api/interpret: classify an utterance without
// executing it.
func (h *VoiceHandlers) Interpret(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "text is required")
		return
	}

	interp := h.engine.Interpret(r.Context(), req.Text, req.domainContext())
	writeJSON(w, http.StatusOK, interp)
}

// Execute handles POST /api/execute: interpret and run an utterance in one
// call, returning the execution result alongside the interpretation.
func (h *VoiceHandlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "text is required")
		return
	}

	interp, res := h.engine.Process(r.Context(), req.Text, req.domainContext())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interpretation": interp,
		"result":         res,
	})
}

// Feedback handles POST /api/feedback: report classification correctness
// for adaptation-rule mining.
func (h *VoiceHandlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.SessionID == "" || req.Expected == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "session_id and expected are required")
		return
	}

	h.engine.Feedback(req.SessionID, req.Predicted, req.Expected, req.Correct)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
