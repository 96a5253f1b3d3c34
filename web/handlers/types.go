// Package handlers provides the HTTP handlers and middleware for the
// ordervox analytics and voice API surface.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ordervox/ordervox/pkg/types"
)

// voiceRequest is the body of /api/interpret and /api/execute. The host
// supplies the catalog, cart and location read-only on every call, mirroring
// the in-process library contract.
type voiceRequest struct {
	Text      string          `json:"text"`
	SessionID string          `json:"session_id,omitempty"`
	Locale    string          `json:"locale,omitempty"`
	Page      string          `json:"page,omitempty"`
	Task      string          `json:"task,omitempty"`
	Products  []types.Product `json:"products,omitempty"`
	Cart      types.Cart      `json:"cart"`
	Location  types.Location  `json:"location"`
}

// domainContext converts the request into the engine's domain context.
func (r *voiceRequest) domainContext() types.DomainContext {
	return types.DomainContext{
		SessionID: r.SessionID,
		Locale:    r.Locale,
		Page:      r.Page,
		Task:      r.Task,
		Products:  r.Products,
		Cart:      r.Cart,
		Location:  r.Location,
	}
}

// feedbackRequest reports whether a classification was correct.
type feedbackRequest struct {
	SessionID string           `json:"session_id"`
	Predicted types.IntentName `json:"predicted"`
	Expected  types.IntentName `json:"expected"`
	Correct   bool             `json:"correct"`
}

// commandEvent is the websocket payload pushed after every executed command.
type commandEvent struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Intent    string        `json:"intent"`
	Result    *types.Result `json:"result"`
	At        time.Time     `json:"at"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
