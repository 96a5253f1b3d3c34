package handlers

import (
	"net/http"

	"github.com/ordervox/ordervox/internal/engine"
	"github.com/ordervox/ordervox/pkg/types"
)

// StatsHandlers serves the analytics endpoints: execution metrics, learned
// rules, sessions and their context/prediction state.
type StatsHandlers struct {
	engine *engine.VoiceEngine
}

// NewStatsHandlers creates the analytics handlers.
func NewStatsHandlers(e *engine.VoiceEngine) *StatsHandlers {
	return &StatsHandlers{engine: e}
}

// GetStats handles GET /api/stats.
func (h *StatsHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Metrics()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":        snap,
		"queue_depth":    h.engine.QueueDepth(),
		"callback_state": h.engine.CallbackState(),
		"locales":        h.engine.Locales(),
		"sessions":       len(h.engine.Sessions()),
	})
}

// Rules handles GET and DELETE on /api/rules: list the active adaptation
// rules or reset them all.
func (h *StatsHandlers) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{"rules": h.engine.Rules()})
	case http.MethodDelete:
		if err := h.engine.ResetRules(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "RESET_FAILED", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

// ListSessions handles GET /api/sessions.
func (h *StatsHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.engine.Sessions()})
}

// SessionContext handles GET /api/sessions/{id}/context.
func (h *StatsHandlers) SessionContext(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "session id is required")
		return
	}

	byLayer := h.engine.CurrentContext(id)
	out := make(map[string][]*types.ContextRecord, len(byLayer))
	for layer, recs := range byLayer {
		out[layer.String()] = recs
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"context": out})
}

// SessionPredictions handles GET /api/sessions/{id}/predictions.
func (h *StatsHandlers) SessionPredictions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "session id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": h.engine.Predictions(id),
	})
}

// EndSession handles DELETE /api/sessions/{id}.
func (h *StatsHandlers) EndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "session id is required")
		return
	}
	h.engine.EndSession(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// Profile handles GET /api/sessions/{id}/profile.
func (h *StatsHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "session id is required")
		return
	}

	profile, err := h.engine.Profile(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PROFILE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Health handles GET /api/health. No auth required.
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": "1.0.0"})
}
