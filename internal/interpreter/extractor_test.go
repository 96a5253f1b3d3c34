package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordervox/ordervox/pkg/types"
)

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	rules, err := LoadRules("", "de-CH")
	require.NoError(t, err)
	return NewExtractor(rules)
}

// TestExtractProductAndQuantity verifies typed entities with spans.
func TestExtractProductAndQuantity(t *testing.T) {
	entities := testExtractor(t).Extract("zwei pizza mit extra käse", "de-CH", Signals{})

	qty := types.FindEntity(entities, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "2", qty.Normalized)
	assert.Equal(t, "zwei", qty.RawValue)
	assert.Equal(t, 0, qty.Span.Start)

	prod := types.FindEntity(entities, types.EntityProduct)
	require.NotNil(t, prod)
	assert.Equal(t, "pizza", prod.Normalized)

	mod := types.FindEntity(entities, types.EntityModifier)
	require.NotNil(t, mod)
	assert.Equal(t, "extra-käse", mod.Normalized)
}

// TestExtractNoOverlappingSpans verifies the greedy confidence-first sweep
// never returns intersecting spans.
func TestExtractNoOverlappingSpans(t *testing.T) {
	texts := []string{
		"zwei pizza und drei cola",
		"pommes frites mit extra käse und ohne zwiebeln",
		"eine grosse scharfe pizza margherita",
	}

	e := testExtractor(t)
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			entities := e.Extract(text, "de-CH", Signals{})
			for i := range entities {
				for j := i + 1; j < len(entities); j++ {
					assert.False(t, entities[i].Span.Overlaps(entities[j].Span),
						"entities %v and %v overlap", entities[i], entities[j])
				}
			}
		})
	}
}

// TestExtractNumeralBeatsWord verifies a digit token is extracted with the
// numeral confidence.
func TestExtractNumeralBeatsWord(t *testing.T) {
	entities := testExtractor(t).Extract("3 pizza", "de-CH", Signals{})

	qty := types.FindEntity(entities, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "3", qty.Normalized)
	assert.InDelta(t, 0.95, qty.Confidence, 1e-9)
}

// TestExtractEmptyText verifies no entities come from empty input.
func TestExtractEmptyText(t *testing.T) {
	assert.Empty(t, testExtractor(t).Extract("", "de-CH", Signals{}))
}

// TestEnrichInfersQuantity verifies an order intent without quantity gets an
// inferred quantity of 1 at confidence 0.8.
func TestEnrichInfersQuantity(t *testing.T) {
	entities := []types.Entity{{
		Type: types.EntityProduct, Normalized: "pizza", Confidence: 0.9,
	}}

	enriched := Enrich(types.IntentOrder, entities, Signals{})

	qty := types.FindEntity(enriched, types.EntityQuantity)
	require.NotNil(t, qty)
	assert.Equal(t, "1", qty.Normalized)
	assert.InDelta(t, 0.8, qty.Confidence, 1e-9)
	assert.True(t, qty.Inferred)
}

// TestEnrichInfersProductFromPage verifies product inference from a product
// detail page.
func TestEnrichInfersProductFromPage(t *testing.T) {
	enriched := Enrich(types.IntentOrder, nil, Signals{Page: "product/pizza"})

	prod := types.FindEntity(enriched, types.EntityProduct)
	require.NotNil(t, prod)
	assert.Equal(t, "pizza", prod.Normalized)
	assert.True(t, prod.Inferred)
}

// TestEnrichSkipsNonOrderIntents verifies defaults are injected only for
// order-class intents.
func TestEnrichSkipsNonOrderIntents(t *testing.T) {
	enriched := Enrich(types.IntentShowMenu, nil, Signals{Page: "product/pizza"})
	assert.Empty(t, enriched)
}

// TestParseQuantityTable verifies numeral, word and dialect parsing.
func TestParseQuantityTable(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3", 3, true},
		{"zwei", 2, true},
		{"zwöi", 2, true},
		{"drü", 3, true},
		{"three", 3, true},
		{"an", 1, true},
		{"nope", 0, false},
		{"0", 0, false},
		{"-2", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseQuantity(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
