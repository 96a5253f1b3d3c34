package contextengine

import (
	"strings"
	"time"

	"github.com/ordervox/ordervox/pkg/types"
)

// TriggerPattern describes a recurring interaction pattern: trigger phrases
// that signal it, the vocabulary that reinforces it across recent records,
// and the action it predicts next.
type TriggerPattern struct {
	Name       string
	Triggers   []string
	BoostVocab []string
	NextAction string
	Base       float64
}

// sequence is a known 3-step context-type progression and the action it
// predicts.
type sequence struct {
	Name       string
	Steps      [3]types.ContextType
	NextAction string
	Confidence float64
}

// defaultPatterns is the built-in pattern catalog.
func defaultPatterns() []TriggerPattern {
	return []TriggerPattern{
		{
			Name:       "reorder",
			Triggers:   []string{"nochmal", "wie immer", "das übliche", "again", "the usual"},
			BoostVocab: []string{"bestellen", "order"},
			NextAction: string(types.IntentOrder),
			Base:       0.75,
		},
		{
			Name:       "checkout-flow",
			Triggers:   []string{"bezahlen", "kasse", "checkout", "pay"},
			BoostVocab: []string{"warenkorb", "cart", "checkout"},
			NextAction: string(types.IntentCheckout),
			Base:       0.8,
		},
		{
			Name:       "menu-browse",
			Triggers:   []string{"speisekarte", "menü", "menu"},
			BoostVocab: []string{"menu", "speisekarte"},
			NextAction: string(types.IntentShowMenu),
			Base:       0.7,
		},
	}
}

// knownSequences lists the 3-step type progressions the engine recognises.
var knownSequences = []sequence{
	{
		Name:       "order-confirmation",
		Steps:      [3]types.ContextType{types.ContextInteraction, types.ContextBusiness, types.ContextBusiness},
		NextAction: string(types.IntentConfirmOrder),
		Confidence: 0.75,
	},
	{
		Name:       "browse-to-order",
		Steps:      [3]types.ContextType{types.ContextInteraction, types.ContextInteraction, types.ContextBusiness},
		NextAction: string(types.IntentCheckout),
		Confidence: 0.7,
	},
}

// MealBucket classifies an hour of day into a meal-time bucket.
func MealBucket(hour int) string {
	switch {
	case hour >= 6 && hour <= 10:
		return "breakfast"
	case hour >= 11 && hour <= 14:
		return "lunch"
	case hour >= 17 && hour <= 21:
		return "dinner"
	default:
		return "late-night"
	}
}

// analyze runs pattern detection for a freshly added record. Called with the
// engine lock held.
func (e *Engine) analyze(rec *types.ContextRecord, now time.Time) {
	text := payloadText(rec.Payload)

	// (a) trigger-pattern match, reinforced by recent vocabulary.
	for _, p := range e.patterns {
		if !containsAny(text, p.Triggers) {
			continue
		}
		conf := p.Base + 0.05*float64(e.recentVocabRefs(p.BoostVocab, 5))
		e.emit(types.Prediction{
			Pattern:    p.Name,
			NextAction: p.NextAction,
			Confidence: conf,
			CreatedAt:  now,
		})
	}

	// (b) temporal pattern: attach the current meal bucket as context. Only
	// for non-temporal records, so the derived record does not recurse.
	if rec.Type != types.ContextTemporal {
		bucket := MealBucket(now.Hour())
		e.append(&types.ContextRecord{
			ID:         rec.ID + ":temporal",
			Type:       types.ContextTemporal,
			Layer:      types.LayerImmediate,
			Payload:    map[string]interface{}{"meal": bucket},
			CreatedAt:  now,
			ExpiresAt:  now.Add(e.cfg.ContextTTL),
			Confidence: 0.9,
			Active:     true,
		})
	}

	// (c) sequential pattern over the types of the last 3 caller records.
	recent := e.lastCallerTypes(3)
	if len(recent) == 3 {
		for _, seq := range knownSequences {
			if recent[0] == seq.Steps[0] && recent[1] == seq.Steps[1] && recent[2] == seq.Steps[2] {
				e.emit(types.Prediction{
					Pattern:    seq.Name,
					NextAction: seq.NextAction,
					Confidence: seq.Confidence,
					CreatedAt:  now,
				})
			}
		}
	}
}

// emit applies the locale factor, clamps to 1.0 and keeps the prediction
// only when it clears the emission floor. Newest predictions sit first;
// the list is bounded to the last 10.
func (e *Engine) emit(p types.Prediction) {
	p.Confidence *= e.localeFactor()
	if p.Confidence > 1.0 {
		p.Confidence = 1.0
	}
	if p.Confidence < e.cfg.PredictionFloor {
		return
	}

	e.predictions = append([]types.Prediction{p}, e.predictions...)
	if len(e.predictions) > 10 {
		e.predictions = e.predictions[:10]
	}
}

// factor is the locale-specific multiplier applied to prediction confidence.
// Defaults to 1.0; never pushes a prediction above 1.0.
var factorDefault = 1.0

func (e *Engine) localeFactor() float64 {
	if e.factor == 0 {
		return factorDefault
	}
	return e.factor
}

// SetLocaleFactor sets the locale-specific prediction confidence multiplier
// (dialect markers present, outside business hours, ...).
func (e *Engine) SetLocaleFactor(f float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f > 0 {
		e.factor = f
	}
}

// recentVocabRefs counts how many of the last n records reference any of the
// given vocabulary words in their payload.
func (e *Engine) recentVocabRefs(vocab []string, n int) int {
	start := len(e.records) - 1 - n
	if start < 0 {
		start = 0
	}
	// The newest record is the one being analyzed; skip it.
	refs := 0
	for i := start; i < len(e.records)-1; i++ {
		if containsAny(payloadText(e.records[i].Payload), vocab) {
			refs++
		}
	}
	return refs
}

// lastCallerTypes returns the types of the last n caller-added records,
// oldest first, skipping engine-derived temporal records.
func (e *Engine) lastCallerTypes(n int) []types.ContextType {
	var out []types.ContextType
	for i := len(e.records) - 1; i >= 0 && len(out) < n; i-- {
		if strings.HasSuffix(e.records[i].ID, ":temporal") {
			continue
		}
		out = append(out, e.records[i].Type)
	}
	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) < n {
		return nil
	}
	return out
}

// payloadText flattens the payload's string values into one lowercase blob
// for phrase matching.
func payloadText(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range payload {
		if s, ok := v.(string); ok {
			b.WriteString(strings.ToLower(s))
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// containsAny reports whether text contains any of the given phrases.
func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
