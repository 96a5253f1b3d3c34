package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/pkg/types"
)

// Monday 13:00 or 14:00 in Zurich, inside business hours.
var lunchtime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Locale: config.LocaleConfig{DefaultLocale: "de-CH"},
		Business: config.BusinessConfig{
			VATRate:         0.077,
			MinimumOrderCHF: 10,
			FreeShippingCHF: 50,
			DefaultFeeCHF:   5,
			OpenHour:        10,
			CloseHour:       22,
			Timezone:        "Europe/Zurich",
		},
		Dispatch: config.DispatchConfig{
			CacheTTL:        5 * time.Minute,
			CacheSize:       64,
			TransactionTTL:  5 * time.Minute,
			QueueSize:       10,
			QueueWarnSize:   5,
			BatchSize:       5,
			SweepInterval:   10 * time.Millisecond,
			MonitorInterval: 10 * time.Millisecond,
			DrainInterval:   10 * time.Millisecond,
		},
		Classifier: config.ClassifierConfig{
			MinConfidence:   0.6,
			FuzzyPenalty:    0.6,
			SimilarityFloor: 0.6,
			ContextTTL:      time.Hour,
			HistoryLimit:    100,
			PredictionFloor: 0.7,
		},
	}
}

func testDomainContext() types.DomainContext {
	return types.DomainContext{
		SessionID: "s1",
		Locale:    "de-CH",
		Products: []types.Product{
			{ID: "p1", Name: "Pizza Margherita", Price: 18.50, Available: true},
			{ID: "p2", Name: "Burger Classic", Price: 14.00, Available: true},
		},
		Location: types.Location{Zone: "zurich-city"},
		Now:      lunchtime,
	}
}

func newTestEngine(t *testing.T, cb types.Callbacks) *VoiceEngine {
	t.Helper()
	e, err := NewVoiceEngine(context.Background(), testConfig(), storage.NewMemoryStore(), cb)
	require.NoError(t, err)
	return e
}

// TestEndToEndOrderFlow verifies the full pipeline: Swiss German utterance
// in, cart mutation callback out.
func TestEndToEndOrderFlow(t *testing.T) {
	var added []types.CartItem
	e := newTestEngine(t, types.Callbacks{
		OnProductAdd: func(item types.CartItem) error {
			added = append(added, item)
			return nil
		},
	})

	interp, res := e.Process(context.Background(), "Ich wott zwöi Pizza bestellen", testDomainContext())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, types.IntentOrder, interp.Intent.Name)
	require.Len(t, added, 1)
	assert.Equal(t, "Pizza Margherita", added[0].Name)
	assert.Equal(t, 2, added[0].Quantity)
}

// TestLowConfidenceClarifies verifies unclassifiable input produces a
// clarification result and never reaches a handler.
func TestLowConfidenceClarifies(t *testing.T) {
	called := false
	e := newTestEngine(t, types.Callbacks{
		OnProductAdd: func(types.CartItem) error {
			called = true
			return nil
		},
	})

	interp, res := e.Process(context.Background(), "blorp zkx vnmi", testDomainContext())
	assert.True(t, interp.NeedsClarification)
	require.False(t, res.Success)
	assert.Equal(t, "clarify", res.Action)
	assert.Empty(t, res.Code)
	assert.NotEmpty(t, res.Suggestions)
	assert.False(t, called)
}

// TestCheckoutEmptyCartThroughPipeline verifies the business-rule failure
// surfaces through the spoken checkout path.
func TestCheckoutEmptyCartThroughPipeline(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})

	_, res := e.Process(context.Background(), "zur Kasse bitte", testDomainContext())
	require.False(t, res.Success)
	assert.Equal(t, types.ErrCartEmpty, res.Code)
}

// TestSessionLifecycle verifies sessions are created on first interaction
// and torn down on explicit end.
func TestSessionLifecycle(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})

	e.Interpret(context.Background(), "hilfe", testDomainContext())
	require.NotNil(t, e.Session("s1"))
	assert.Len(t, e.Sessions(), 1)

	e.EndSession("s1")
	assert.Nil(t, e.Session("s1"))
	assert.Empty(t, e.Sessions())
}

// TestProfilePersistedAfterCommand verifies the per-user profile is stored
// after every outcome.
func TestProfilePersistedAfterCommand(t *testing.T) {
	store := storage.NewMemoryStore()
	e, err := NewVoiceEngine(context.Background(), testConfig(), store, types.Callbacks{})
	require.NoError(t, err)

	_, res := e.Process(context.Background(), "zeig mir die Speisekarte", testDomainContext())
	require.True(t, res.Success, res.Error)

	data, err := store.Get(context.Background(), "profile:s1")
	require.NoError(t, err)

	var profile types.UserProfile
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, 1, profile.Stats.TotalCommands)
	assert.Equal(t, 1, profile.Stats.Successful)
	assert.Equal(t, 1, profile.Stats.IntentCounts[string(types.IntentShowMenu)])
}

// TestMetricsReflectExecutions verifies dispatcher outcomes reach the
// learning tracker.
func TestMetricsReflectExecutions(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})
	dctx := testDomainContext()

	e.Process(context.Background(), "zeig mir die Speisekarte", dctx)
	e.Process(context.Background(), "zur Kasse", dctx)

	snap := e.Metrics()
	assert.Equal(t, 2, snap.TotalCommands)
	assert.Equal(t, 1, snap.Successes)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, 1, snap.PerError[types.ErrCartEmpty])
}

// TestInterpretRecordsInteractionContext verifies every utterance lands in
// the session's context history.
func TestInterpretRecordsInteractionContext(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})

	e.Interpret(context.Background(), "zeig mir die Speisekarte", testDomainContext())

	byLayer := e.CurrentContext("s1")
	require.NotEmpty(t, byLayer[types.LayerImmediate])
}

// TestResultListenerNotified verifies the observer fan-out.
func TestResultListenerNotified(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})
	var gotSession string
	var gotAction string
	e.OnResult(func(sessionID string, cmd *types.Command, res *types.Result) {
		gotSession = sessionID
		gotAction = res.Action
	})

	e.Process(context.Background(), "zeig mir die Speisekarte", testDomainContext())
	assert.Equal(t, "s1", gotSession)
	assert.Equal(t, "show_menu", gotAction)
}

// TestStartAndShutdown verifies the background tick lifecycle.
func TestStartAndShutdown(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})

	require.NoError(t, e.Start(context.Background()))
	assert.Error(t, e.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Error(t, e.Shutdown(context.Background()))
}

// TestFeedbackReachesTracker verifies explicit feedback lands in the mining
// log with context attributes attached.
func TestFeedbackReachesTracker(t *testing.T) {
	e := newTestEngine(t, types.Callbacks{})

	for range 5 {
		e.Feedback("s1", types.IntentShowMenu, types.IntentOrder, false)
	}
	mined, err := e.tracker.MineRules(context.Background())
	require.NoError(t, err)
	require.Len(t, mined, 1)
	assert.Equal(t, types.IntentOrder, mined[0].Intent)
}
