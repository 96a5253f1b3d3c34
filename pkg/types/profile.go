package types

import "time"

// BehaviorStats accumulates per-user outcome statistics across sessions.
type BehaviorStats struct {
	TotalCommands  int            `json:"total_commands"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	IntentCounts   map[string]int `json:"intent_counts,omitempty"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// UserProfile is the persisted per-user state: preferences, accumulated
// behavior and the IDs of adaptation rules learned for this user. Stored as
// JSON through the injected key-value store and updated after every command
// outcome.
type UserProfile struct {
	ID          string                 `json:"id"`
	Preferences map[string]string      `json:"preferences,omitempty"`
	Stats       BehaviorStats          `json:"stats"`
	Adjustments map[string]float64     `json:"learned_adjustments,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// AdaptationRule boosts an intent's classification confidence whenever a
// context attribute that previously co-occurred with misclassifications of
// that intent recurs. Rules are mined by the learning subsystem; they never
// expire on their own and are removed only by explicit reset.
type AdaptationRule struct {
	ID     string     `json:"id"`
	Intent IntentName `json:"intent"`

	// Attribute/Value identify the context attribute whose recurrence
	// triggers the rule.
	Attribute string `json:"attribute"`
	Value     string `json:"value"`

	// ConfidenceDelta is applied additively; the classifier clamps the
	// resulting confidence to [0,1].
	ConfidenceDelta float64 `json:"confidence_delta"`

	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Matches reports whether the rule's trigger attribute is present with the
// expected value in the given attribute set.
func (r *AdaptationRule) Matches(attrs map[string]string) bool {
	v, ok := attrs[r.Attribute]
	return ok && v == r.Value
}
