package interpreter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

func testClassifierConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		MinConfidence:   0.6,
		FuzzyPenalty:    0.6,
		SimilarityFloor: 0.6,
		ContextTTL:      time.Hour,
		HistoryLimit:    100,
		PredictionFloor: 0.7,
	}
}

func testInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	rules, err := LoadRules("", "de-CH")
	require.NoError(t, err)
	return New(rules, testClassifierConfig())
}

// TestInterpretSwissGermanOrder verifies the reference scenario: a de-CH
// order utterance yields the order intent with confidence >= 0.8 plus
// quantity and product entities.
func TestInterpretSwissGermanOrder(t *testing.T) {
	interp := testInterpreter(t).Interpret(
		"Ich möchte zwei Pizza bestellen", "de-CH", Signals{}, nil)

	assert.Equal(t, types.IntentOrder, interp.Intent.Name)
	assert.GreaterOrEqual(t, interp.Intent.Confidence, 0.8)
	assert.False(t, interp.NeedsClarification)

	qty := types.FindEntity(interp.Entities, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "2", qty.Normalized)

	prod := types.FindEntity(interp.Entities, types.EntityProduct)
	require.NotNil(t, prod)
	assert.Equal(t, "pizza", prod.Normalized)
}

// TestInterpretDialectUtterance verifies Swiss German dialect forms are
// normalized before classification.
func TestInterpretDialectUtterance(t *testing.T) {
	interp := testInterpreter(t).Interpret(
		"Ich wott zwöi Pizza", "de-CH", Signals{}, nil)

	assert.Equal(t, types.IntentOrder, interp.Intent.Name)

	qty := types.FindEntity(interp.Entities, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "2", qty.Normalized)
}

// TestInterpretDeterminism verifies repeated calls with fixed inputs return
// identical results absent learning-rule changes.
func TestInterpretDeterminism(t *testing.T) {
	it := testInterpreter(t)
	sig := Signals{Page: "menu", CartNotEmpty: true, Hour: 12}

	first := it.Interpret("Ich möchte zwei Pizza bestellen", "de-CH", sig, nil)
	for range 5 {
		again := it.Interpret("Ich möchte zwei Pizza bestellen", "de-CH", sig, nil)
		assert.Equal(t, first.Intent, again.Intent)
		assert.Equal(t, first.Entities, again.Entities)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

// TestInterpretEmptyText verifies empty input classifies as unknown with
// confidence zero and asks for clarification.
func TestInterpretEmptyText(t *testing.T) {
	interp := testInterpreter(t).Interpret("   ", "de-CH", Signals{}, nil)

	assert.Equal(t, types.IntentUnknown, interp.Intent.Name)
	assert.Zero(t, interp.Confidence)
	assert.True(t, interp.NeedsClarification)
	assert.NotEmpty(t, interp.Suggestions)
}

// TestInterpretConfidenceBounds verifies every intent and entity confidence
// stays within [0,1] even with stacked boosts.
func TestInterpretConfidenceBounds(t *testing.T) {
	adaptations := []types.AdaptationRule{
		{Intent: types.IntentCheckout, Attribute: "page", Value: "cart", ConfidenceDelta: 0.5},
	}
	sig := Signals{
		Page:         "cart",
		CartNotEmpty: true,
		Hour:         12,
		Attributes:   map[string]string{"page": "cart"},
	}

	interp := testInterpreter(t).Interpret("Zur Kasse bitte bezahlen", "de-CH", sig, adaptations)

	assert.GreaterOrEqual(t, interp.Intent.Confidence, 0.0)
	assert.LessOrEqual(t, interp.Intent.Confidence, 1.0)
	for _, alt := range interp.Alternatives {
		assert.GreaterOrEqual(t, alt.Confidence, 0.0)
		assert.LessOrEqual(t, alt.Confidence, 1.0)
	}
	for _, e := range interp.Entities {
		assert.GreaterOrEqual(t, e.Confidence, 0.0)
		assert.LessOrEqual(t, e.Confidence, 1.0)
	}
}

// TestInterpretFuzzyFallbackLowersConfidence verifies a near-miss token is
// accepted through the edit-distance fallback at a reduced confidence.
func TestInterpretFuzzyFallbackLowersConfidence(t *testing.T) {
	it := testInterpreter(t)

	exact := it.Interpret("bezahlen", "de-CH", Signals{}, nil)
	fuzzy := it.Interpret("bezahlne", "de-CH", Signals{}, nil)

	assert.Equal(t, types.IntentCheckout, exact.Intent.Name)
	assert.Equal(t, types.IntentCheckout, fuzzy.Intent.Name)
	assert.Less(t, fuzzy.Intent.Confidence, exact.Intent.Confidence)
	assert.True(t, fuzzy.NeedsClarification,
		"fuzzy-only match should fall below the execution threshold")
}

// TestInterpretContextBoostPrefersCheckout verifies a non-empty cart boosts
// checkout-class intents.
func TestInterpretContextBoostPrefersCheckout(t *testing.T) {
	it := testInterpreter(t)

	plain := it.Interpret("bezahlen", "de-CH", Signals{}, nil)
	boosted := it.Interpret("bezahlen", "de-CH", Signals{CartNotEmpty: true}, nil)

	assert.Greater(t, boosted.Intent.Confidence, plain.Intent.Confidence)
}

// TestInterpretAdaptationRuleBoost verifies learned adjustments apply when
// the trigger attribute recurs.
func TestInterpretAdaptationRuleBoost(t *testing.T) {
	it := testInterpreter(t)
	rule := types.AdaptationRule{
		Intent:          types.IntentShowMenu,
		Attribute:       "meal",
		Value:           "lunch",
		ConfidenceDelta: 0.1,
	}

	sig := Signals{Attributes: map[string]string{"meal": "lunch"}}
	plain := it.Interpret("was gibt es", "de-CH", Signals{}, nil)
	boosted := it.Interpret("was gibt es", "de-CH", sig, []types.AdaptationRule{rule})

	assert.Equal(t, types.IntentShowMenu, plain.Intent.Name)
	assert.InDelta(t, plain.Intent.Confidence+0.1, boosted.Intent.Confidence, 1e-9)
}

// TestInterpretEnglishLocale verifies the en rule set resolves and matches.
func TestInterpretEnglishLocale(t *testing.T) {
	rules, err := LoadRules("", "en")
	require.NoError(t, err)
	it := New(rules, testClassifierConfig())

	interp := it.Interpret("I would like two burgers", "en", Signals{}, nil)

	assert.Equal(t, types.IntentOrder, interp.Intent.Name)
	qty := types.FindEntity(interp.Entities, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "2", qty.Normalized)
}
