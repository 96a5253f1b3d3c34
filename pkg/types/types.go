// Package types defines the core data structures for the ordervox voice
// pipeline: intents, entities, interpretations, commands, results and the
// error taxonomy shared by the interpreter, context engine and dispatcher.
package types

import (
	"time"
)

// IntentName identifies a supported intent. The set is closed: the dispatcher
// switches exhaustively over intent kinds and falls back to the category
// handler for names it does not special-case.
type IntentName string

// Supported intent names.
const (
	IntentOrder         IntentName = "order"
	IntentAddProduct    IntentName = "add_product"
	IntentRemoveProduct IntentName = "remove_product"
	IntentCheckout      IntentName = "checkout"
	IntentConfirmOrder  IntentName = "confirm_order"
	IntentCancel        IntentName = "cancel"
	IntentStop          IntentName = "stop"
	IntentNavigate      IntentName = "navigate"
	IntentShowMenu      IntentName = "show_menu"
	IntentPriceInquiry  IntentName = "price_inquiry"
	IntentCartInquiry   IntentName = "cart_inquiry"
	IntentHelp          IntentName = "help"
	IntentRepeat        IntentName = "repeat"
	IntentUnknown       IntentName = "unknown"
)

// IntentCategory groups intents for handler fallback and priority mapping.
type IntentCategory string

// Intent categories. Declaration order is the tie-break order for equal
// classification confidence.
const (
	CategoryOrder      IntentCategory = "order"
	CategoryCheckout   IntentCategory = "checkout"
	CategoryNavigation IntentCategory = "navigation"
	CategoryInquiry    IntentCategory = "inquiry"
	CategoryControl    IntentCategory = "control"
	CategoryUnknown    IntentCategory = "unknown"
)

// categoryRank maps each category to its declaration position, used to break
// confidence ties deterministically.
var categoryRank = map[IntentCategory]int{
	CategoryOrder:      0,
	CategoryCheckout:   1,
	CategoryNavigation: 2,
	CategoryInquiry:    3,
	CategoryControl:    4,
	CategoryUnknown:    5,
}

// CategoryRank returns the declaration position of c. Unknown categories sort
// last.
func CategoryRank(c IntentCategory) int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return len(categoryRank)
}

// intentCategories binds every intent name to exactly one category.
var intentCategories = map[IntentName]IntentCategory{
	IntentOrder:         CategoryOrder,
	IntentAddProduct:    CategoryOrder,
	IntentRemoveProduct: CategoryOrder,
	IntentCheckout:      CategoryCheckout,
	IntentConfirmOrder:  CategoryCheckout,
	IntentCancel:        CategoryControl,
	IntentStop:          CategoryControl,
	IntentNavigate:      CategoryNavigation,
	IntentShowMenu:      CategoryInquiry,
	IntentPriceInquiry:  CategoryInquiry,
	IntentCartInquiry:   CategoryInquiry,
	IntentHelp:          CategoryControl,
	IntentRepeat:        CategoryControl,
	IntentUnknown:       CategoryUnknown,
}

// CategoryOf returns the category an intent name belongs to.
// Names outside the supported set map to CategoryUnknown.
func CategoryOf(name IntentName) IntentCategory {
	if c, ok := intentCategories[name]; ok {
		return c
	}
	return CategoryUnknown
}

// Intent is a classified utterance purpose. Intents are immutable and
// produced fresh per utterance.
type Intent struct {
	Name       IntentName     `json:"name"`
	Confidence float64        `json:"confidence"` // always in [0,1]
	Category   IntentCategory `json:"category"`
}

// Priority classifies a command for timeout, retry and queue-order purposes.
type Priority int

// Priority categories, ordered so that a lower numeric value is served first.
const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// String returns the canonical name of the priority category.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	default:
		return "NORMAL"
	}
}

// Timeout returns the execution timeout for commands of this priority.
func (p Priority) Timeout() time.Duration {
	switch p {
	case PriorityCritical:
		return 5 * time.Second
	case PriorityHigh:
		return 3 * time.Second
	case PriorityLow:
		return 1 * time.Second
	default:
		return 2 * time.Second
	}
}

// MaxRetries returns the number of retries allowed for commands of this
// priority after a retryable failure.
func (p Priority) MaxRetries() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// PriorityOf maps an intent name to its priority category. Every intent name
// belongs to exactly one category: cancel/stop are CRITICAL, checkout-class
// intents are HIGH, help/repeat are LOW, everything else is NORMAL.
func PriorityOf(name IntentName) Priority {
	switch name {
	case IntentCancel, IntentStop:
		return PriorityCritical
	case IntentCheckout, IntentConfirmOrder:
		return PriorityHigh
	case IntentHelp, IntentRepeat:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Strategy selects how a command is executed by the dispatcher.
type Strategy string

// Execution strategies.
const (
	StrategyImmediate Strategy = "immediate"
	StrategyQueued    Strategy = "queued"
	StrategyBatch     Strategy = "batch"
	StrategyScheduled Strategy = "scheduled"
)

// Interpretation is the merged classifier/extractor output for one utterance.
type Interpretation struct {
	// Intent is the top-ranked intent for the utterance.
	Intent Intent `json:"intent"`

	// Alternatives holds the remaining ranked intents, best first.
	Alternatives []Intent `json:"alternatives,omitempty"`

	// Entities is the resolved, non-overlapping entity set.
	Entities []Entity `json:"entities"`

	// Confidence mirrors the top intent's confidence for callers that do not
	// inspect the intent itself.
	Confidence float64 `json:"confidence"`

	// NeedsClarification is set when confidence is below the minimum
	// threshold; the interpretation must not be executed as-is.
	NeedsClarification bool `json:"needs_clarification"`

	// Suggestions lists clarification prompts or predicted follow-ups.
	Suggestions []string `json:"suggestions,omitempty"`

	// Metadata carries auxiliary information (normalized text, locale,
	// matched rule IDs) for debugging and analytics.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Command is the transient unit of work handed to the dispatcher. One command
// is created per dispatch call and runs to completion or failure within a
// single scheduling turn.
type Command struct {
	ID        string                 `json:"id"`
	Intent    Intent                 `json:"intent"`
	Entities  []Entity               `json:"entities"`
	Snapshot  map[string]interface{} `json:"context_snapshot,omitempty"`
	Priority  Priority               `json:"priority"`
	Strategy  Strategy               `json:"strategy"`
	SessionID string                 `json:"session_id,omitempty"`

	// NotBefore defers execution for SCHEDULED commands; zero means now.
	NotBefore time.Time `json:"not_before,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
