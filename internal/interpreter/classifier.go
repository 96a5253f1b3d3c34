package interpreter

import (
	"sort"
	"strings"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

// Signals is the classifier's view of the current situation, distilled from
// the context engine and the host's domain context. It drives the additive
// context boosts and adaptation-rule matching.
type Signals struct {
	Page         string
	Task         string
	CartNotEmpty bool
	Hour         int // local hour of day, 0-23

	// Attributes is the flattened context attribute set adaptation rules
	// match against (page, task, meal bucket, last intent...).
	Attributes map[string]string
}

// Classifier scores intents against normalized text using the locale's
// trigger rules, then layers on context boosts and learned adjustments.
type Classifier struct {
	rules *Registry
	cfg   config.ClassifierConfig
}

// NewClassifier creates a classifier backed by the given rule registry.
func NewClassifier(rules *Registry, cfg config.ClassifierConfig) *Classifier {
	return &Classifier{rules: rules, cfg: cfg}
}

// Classify returns the known intents ranked by adjusted confidence, best
// first. For fixed inputs the result is deterministic: ties are broken by
// category declaration order, then intent name. Empty text yields the
// unknown intent with confidence zero.
func (c *Classifier) Classify(normText, locale string, sig Signals, adaptations []types.AdaptationRule) []types.Intent {
	if strings.TrimSpace(normText) == "" {
		return []types.Intent{{Name: types.IntentUnknown, Confidence: 0, Category: types.CategoryUnknown}}
	}

	rs := c.rules.ForLocale(locale)
	if rs == nil {
		return []types.Intent{{Name: types.IntentUnknown, Confidence: 0, Category: types.CategoryUnknown}}
	}

	var ranked []types.Intent
	for _, rule := range rs.Intents {
		score := c.baseScore(normText, rule)
		if score == 0 {
			continue
		}

		score += contextBoost(rule.Intent, sig)
		score += adaptationBoost(rule.Intent, sig, adaptations)
		ranked = append(ranked, types.Intent{
			Name:       rule.Intent,
			Confidence: clamp01(score),
			Category:   types.CategoryOf(rule.Intent),
		})
	}

	if len(ranked) == 0 {
		return []types.Intent{{Name: types.IntentUnknown, Confidence: 0, Category: types.CategoryUnknown}}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		ri, rj := types.CategoryRank(ranked[i].Category), types.CategoryRank(ranked[j].Category)
		if ri != rj {
			return ri < rj
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// baseScore evaluates the rule's triggers against the text. A direct
// (word-boundary) trigger match yields the rule's base confidence. Otherwise
// the best edit-distance similarity between the text's tokens and the
// triggers is used, scaled by the fuzzy penalty and accepted only above the
// similarity floor.
func (c *Classifier) baseScore(normText string, rule IntentRule) float64 {
	for _, trigger := range rule.Triggers {
		if indexWord(normText, trigger, 0) >= 0 {
			return rule.Confidence
		}
	}

	best := 0.0
	tokens := strings.Fields(normText)
	for _, trigger := range rule.Triggers {
		if sim := similarity(normText, trigger); sim > best {
			best = sim
		}
		for _, tok := range tokens {
			if sim := similarity(tok, trigger); sim > best {
				best = sim
			}
		}
	}
	if best < c.cfg.SimilarityFloor {
		return 0
	}
	return rule.Confidence * c.cfg.FuzzyPenalty * best
}

// contextBoost returns the additive adjustment for the intent given the
// current page/task, cart state and time of day.
func contextBoost(intent types.IntentName, sig Signals) float64 {
	boost := 0.0

	switch intent {
	case types.IntentOrder, types.IntentAddProduct:
		if sig.Page == "menu" || strings.HasPrefix(sig.Page, "product/") {
			boost += 0.10
		}
		if mealHour(sig.Hour) {
			boost += 0.05
		}
	case types.IntentCheckout, types.IntentConfirmOrder:
		if sig.CartNotEmpty {
			boost += 0.15
		}
	case types.IntentCartInquiry, types.IntentRemoveProduct:
		if sig.CartNotEmpty {
			boost += 0.05
		}
	case types.IntentShowMenu:
		if sig.Page == "home" {
			boost += 0.05
		}
	}

	if sig.Task != "" && intent == types.IntentConfirmOrder && sig.Task == "checkout" {
		boost += 0.10
	}
	return boost
}

// adaptationBoost sums the deltas of learned rules whose trigger attribute
// recurs in the current signals.
func adaptationBoost(intent types.IntentName, sig Signals, rules []types.AdaptationRule) float64 {
	boost := 0.0
	for i := range rules {
		if rules[i].Intent == intent && rules[i].Matches(sig.Attributes) {
			boost += rules[i].ConfidenceDelta
		}
	}
	return boost
}

// mealHour reports whether the hour falls into a lunch or dinner window.
func mealHour(hour int) bool {
	return (hour >= 11 && hour <= 13) || (hour >= 18 && hour <= 20)
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
