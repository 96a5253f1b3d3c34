package types

import "time"

// ContextType classifies what a context record describes.
type ContextType string

// Context record types.
const (
	ContextUser        ContextType = "user"
	ContextLocation    ContextType = "location"
	ContextTemporal    ContextType = "temporal"
	ContextBusiness    ContextType = "business"
	ContextSystem      ContextType = "system"
	ContextInteraction ContextType = "interaction"
)

// ContextLayer is the specificity tier of a context record. Higher layers win
// when records of the same type are merged.
type ContextLayer int

// Context layers, ordered least to most specific.
const (
	LayerGlobal ContextLayer = iota
	LayerSession
	LayerPage
	LayerTask
	LayerImmediate
)

// String returns the canonical lowercase layer name.
func (l ContextLayer) String() string {
	switch l {
	case LayerGlobal:
		return "global"
	case LayerSession:
		return "session"
	case LayerPage:
		return "page"
	case LayerTask:
		return "task"
	case LayerImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// ContextRecord is one situational fact held by the context engine.
//
// Records flow active → expired by TTL only; a newer record of the same
// type/layer coexists with older ones, readers select by layer/type/recency.
// Records are created only through the context engine's AddContext.
type ContextRecord struct {
	ID         string                 `json:"id"`
	Type       ContextType            `json:"type"`
	Layer      ContextLayer           `json:"layer"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedAt  time.Time              `json:"created_at"`
	ExpiresAt  time.Time              `json:"expires_at"` // always after CreatedAt
	Confidence float64                `json:"confidence"`
	Active     bool                   `json:"active"`
}

// Visible reports whether the record should be consulted at the given
// instant: it must be active and not yet expired.
func (r *ContextRecord) Visible(now time.Time) bool {
	return r.Active && now.Before(r.ExpiresAt)
}

// Session tracks one client's interaction window. One session is active per
// client; it is created on first interaction and closed on explicit end or
// teardown.
type Session struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ContextIDs []string   `json:"context_ids,omitempty"`
	EventIDs   []string   `json:"event_ids,omitempty"`
}

// Prediction is a short-horizon guess about the next context or action,
// emitted by the context engine's pattern detection.
type Prediction struct {
	// Pattern names the detected pattern that produced this prediction.
	Pattern string `json:"pattern"`

	// NextAction is the predicted follow-up (an intent name or context hint).
	NextAction string `json:"next_action"`

	// Confidence is in [0,1]; predictions below the emission floor are
	// discarded before they reach callers.
	Confidence float64 `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
}
