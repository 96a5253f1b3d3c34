package types

// EntityType identifies the kind of value an entity carries.
type EntityType string

// Supported entity types.
const (
	EntityProduct       EntityType = "product"
	EntityQuantity      EntityType = "quantity"
	EntityModifier      EntityType = "modifier"
	EntityNavTarget     EntityType = "navigation_target"
	EntityPaymentMethod EntityType = "payment_method"
	EntityTime          EntityType = "time"
)

// Span marks the half-open byte range [Start, End) an entity was matched at
// in the normalized text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans intersect. Two spans overlap iff neither
// ends before the other starts.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Entity is a typed value extracted from an utterance.
//
// Within a resolved entity set no two spans overlap; the extractor resolves
// conflicts by keeping the higher-confidence candidate, ties broken by
// extraction order.
type Entity struct {
	Type       EntityType `json:"type"`
	Category   string     `json:"category,omitempty"`
	RawValue   string     `json:"raw_value"`
	Normalized string     `json:"normalized_value"`
	Span       Span       `json:"span"`
	Confidence float64    `json:"confidence"` // always in [0,1]

	// Inferred marks entities injected from defaults or context rather than
	// matched in the text. Inferred entities have a zero span.
	Inferred bool `json:"inferred,omitempty"`
}

// FindEntity returns the first entity of the given type, or nil.
func FindEntity(entities []Entity, t EntityType) *Entity {
	for i := range entities {
		if entities[i].Type == t {
			return &entities[i]
		}
	}
	return nil
}
