package contextengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

func testEngine() *Engine {
	return New(config.ClassifierConfig{
		ContextTTL:      time.Hour,
		HistoryLimit:    100,
		PredictionFloor: 0.7,
	})
}

// TestAddContextCreatesVisibleRecord verifies records carry a TTL and are
// readable immediately.
func TestAddContextCreatesVisibleRecord(t *testing.T) {
	e := testEngine()

	rec := e.AddContext(types.ContextInteraction,
		map[string]interface{}{"utterance": "zeig mir die speisekarte"}, types.LayerSession)

	require.NotNil(t, rec)
	assert.True(t, rec.ExpiresAt.After(rec.CreatedAt))

	got := e.GetContext(Filter{Type: types.ContextInteraction})
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

// TestGetContextLayerPrecedence verifies sorting by layer descending then
// recency descending, so the most specific and most recent record wins.
func TestGetContextLayerPrecedence(t *testing.T) {
	e := testEngine()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := base
	e.SetClock(func() time.Time { return clock })

	e.AddContext(types.ContextLocation, map[string]interface{}{"zone": "global"}, types.LayerGlobal)
	clock = clock.Add(time.Minute)
	e.AddContext(types.ContextLocation, map[string]interface{}{"zone": "page"}, types.LayerPage)
	clock = clock.Add(time.Minute)
	e.AddContext(types.ContextLocation, map[string]interface{}{"zone": "session"}, types.LayerSession)

	got := e.GetContext(Filter{Type: types.ContextLocation})
	require.Len(t, got, 3)
	assert.Equal(t, types.LayerPage, got[0].Layer)
	assert.Equal(t, types.LayerSession, got[1].Layer)
	assert.Equal(t, types.LayerGlobal, got[2].Layer)

	winner := e.Resolve(types.ContextLocation)
	require.NotNil(t, winner)
	assert.Equal(t, "page", winner.Payload["zone"])
}

// TestGetContextSameLayerRecencyWins verifies the more recent record wins on
// equal layer.
func TestGetContextSameLayerRecencyWins(t *testing.T) {
	e := testEngine()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := base
	e.SetClock(func() time.Time { return clock })

	e.AddContext(types.ContextUser, map[string]interface{}{"name": "old"}, types.LayerSession)
	clock = clock.Add(time.Minute)
	e.AddContext(types.ContextUser, map[string]interface{}{"name": "new"}, types.LayerSession)

	winner := e.Resolve(types.ContextUser)
	require.NotNil(t, winner)
	assert.Equal(t, "new", winner.Payload["name"])
}

// TestContextExpiry verifies records become invisible after TTL and are
// removed by the sweep.
func TestContextExpiry(t *testing.T) {
	e := testEngine()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := base
	e.SetClock(func() time.Time { return clock })

	e.AddContext(types.ContextUser, map[string]interface{}{"name": "x"}, types.LayerSession)
	require.NotEmpty(t, e.GetContext(Filter{Type: types.ContextUser}))

	clock = base.Add(2 * time.Hour)
	assert.Empty(t, e.GetContext(Filter{Type: types.ContextUser}))

	removed := e.Sweep()
	assert.Greater(t, removed, 0)
	assert.Equal(t, 0, e.Size())
}

// TestHistoryBounded verifies the session history keeps only the newest
// records once the bound is reached.
func TestHistoryBounded(t *testing.T) {
	e := New(config.ClassifierConfig{
		ContextTTL:      time.Hour,
		HistoryLimit:    10,
		PredictionFloor: 0.7,
	})

	for range 30 {
		e.AddContext(types.ContextInteraction, map[string]interface{}{"n": "x"}, types.LayerImmediate)
	}
	assert.LessOrEqual(t, e.Size(), 10)
}

// TestTemporalPatternAttachesMealBucket verifies every caller record gets an
// accompanying temporal meal-time record.
func TestTemporalPatternAttachesMealBucket(t *testing.T) {
	e := testEngine()
	noon := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return noon })

	e.AddContext(types.ContextInteraction, map[string]interface{}{"u": "hallo"}, types.LayerImmediate)

	temporal := e.GetContext(Filter{Type: types.ContextTemporal})
	require.NotEmpty(t, temporal)
	assert.Equal(t, "lunch", temporal[0].Payload["meal"])
}

// TestMealBucketBoundaries verifies the hour classification.
func TestMealBucketBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{7, "breakfast"}, {10, "breakfast"},
		{11, "lunch"}, {14, "lunch"},
		{17, "dinner"}, {21, "dinner"},
		{23, "late-night"}, {3, "late-night"}, {15, "late-night"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MealBucket(tc.hour), "hour %d", tc.hour)
	}
}

// TestTriggerPatternEmitsPrediction verifies a trigger phrase in a new
// record's payload produces a prediction above the floor.
func TestTriggerPatternEmitsPrediction(t *testing.T) {
	e := testEngine()

	e.AddContext(types.ContextInteraction,
		map[string]interface{}{"utterance": "ich will bezahlen"}, types.LayerImmediate)

	preds := e.Predictions()
	require.NotEmpty(t, preds)
	assert.Equal(t, "checkout-flow", preds[0].Pattern)
	assert.Equal(t, string(types.IntentCheckout), preds[0].NextAction)
	assert.GreaterOrEqual(t, preds[0].Confidence, 0.7)
	assert.LessOrEqual(t, preds[0].Confidence, 1.0)
}

// TestLowConfidencePredictionsDiscarded verifies predictions below the floor
// never surface.
func TestLowConfidencePredictionsDiscarded(t *testing.T) {
	e := testEngine()
	e.SetLocaleFactor(0.5)

	e.AddContext(types.ContextInteraction,
		map[string]interface{}{"utterance": "ich will bezahlen"}, types.LayerImmediate)

	assert.Empty(t, e.Predictions())
}

// TestLocaleFactorNeverExceedsOne verifies the locale boost clamps at 1.0.
func TestLocaleFactorNeverExceedsOne(t *testing.T) {
	e := testEngine()
	e.SetLocaleFactor(2.0)

	e.AddContext(types.ContextInteraction,
		map[string]interface{}{"utterance": "ich will bezahlen"}, types.LayerImmediate)

	preds := e.Predictions()
	require.NotEmpty(t, preds)
	assert.LessOrEqual(t, preds[0].Confidence, 1.0)
}

// TestSequentialPatternDetected verifies the 3-step type progression check.
func TestSequentialPatternDetected(t *testing.T) {
	e := testEngine()

	e.AddContext(types.ContextInteraction, map[string]interface{}{"s": "browse"}, types.LayerImmediate)
	e.AddContext(types.ContextBusiness, map[string]interface{}{"s": "add item"}, types.LayerImmediate)
	e.AddContext(types.ContextBusiness, map[string]interface{}{"s": "add item"}, types.LayerImmediate)

	var found bool
	for _, p := range e.Predictions() {
		if p.Pattern == "order-confirmation" {
			found = true
			assert.Equal(t, string(types.IntentConfirmOrder), p.NextAction)
		}
	}
	assert.True(t, found, "expected order-confirmation sequence to be detected")
}

// TestResetClearsEverything verifies bulk teardown.
func TestResetClearsEverything(t *testing.T) {
	e := testEngine()
	e.AddContext(types.ContextUser, map[string]interface{}{"u": "x"}, types.LayerSession)

	e.Reset()
	assert.Equal(t, 0, e.Size())
	assert.Empty(t, e.Predictions())
}
