// Package engine is the top-level orchestrator of the voice pipeline. It
// wires the interpreter, per-session context engines, the dispatcher and the
// learning tracker behind the two public operations, Interpret and Execute,
// and drives the recurring background ticks.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/internal/contextengine"
	"github.com/ordervox/ordervox/internal/dispatch"
	"github.com/ordervox/ordervox/internal/interpreter"
	"github.com/ordervox/ordervox/internal/learning"
	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/pkg/types"
)

// ResultListener is notified after every executed command, with the session
// it belonged to. Used by the web surface to push events over websockets.
type ResultListener func(sessionID string, cmd *types.Command, res *types.Result)

// VoiceEngine owns one interpreter, one dispatcher and one context engine per
// active session. Construct it once at startup and pass it by reference; it
// holds no global state.
type VoiceEngine struct {
	cfg    *config.Config
	rules  *interpreter.Registry
	interp *interpreter.Interpreter

	dispatcher *dispatch.Dispatcher
	tracker    *learning.Tracker
	store      storage.KVStore

	mu        sync.RWMutex
	sessions  map[string]*types.Session
	contexts  map[string]*contextengine.Engine
	listeners []ResultListener

	started      bool
	shuttingDown bool
	bgCancel     context.CancelFunc
	bgWait       sync.WaitGroup
}

// NewVoiceEngine builds the full pipeline. Missing locale rule data is fatal:
// the engine refuses to start rather than degrade to unclassifiable input.
func NewVoiceEngine(ctx context.Context, cfg *config.Config, store storage.KVStore, callbacks types.Callbacks) (*VoiceEngine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: key-value store is required")
	}

	rules, err := interpreter.LoadRules(cfg.Locale.RulesPath, cfg.Locale.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load locale rules: %w", err)
	}

	tracker, err := learning.NewTracker(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to initialize learning tracker: %w", err)
	}

	e := &VoiceEngine{
		cfg:        cfg,
		rules:      rules,
		interp:     interpreter.New(rules, cfg.Classifier),
		dispatcher: dispatch.New(cfg.Dispatch, cfg.Business, callbacks),
		tracker:    tracker,
		store:      store,
		sessions:   make(map[string]*types.Session),
		contexts:   make(map[string]*contextengine.Engine),
	}
	e.dispatcher.SetSink(tracker)
	return e, nil
}

// OnResult registers a listener for completed commands.
func (e *VoiceEngine) OnResult(l ResultListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Start launches the three background ticks: the expiry sweep, the
// queue-size monitor and the queued/scheduled command drain.
func (e *VoiceEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}

	bgCtx, cancel := context.WithCancel(ctx)
	e.bgCancel = cancel

	e.bgWait.Add(3)
	go e.sweepLoop(bgCtx)
	go e.monitorLoop(bgCtx)
	go e.drainLoop(bgCtx)

	e.started = true
	log.Println("voice engine started")
	return nil
}

// Shutdown stops the background ticks and closes every active session.
func (e *VoiceEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine not started")
	}
	e.shuttingDown = true
	cancel := e.bgCancel
	e.mu.Unlock()

	cancel()
	e.bgWait.Wait()

	e.mu.Lock()
	for id := range e.sessions {
		e.closeSessionLocked(id)
	}
	e.started = false
	e.shuttingDown = false
	e.mu.Unlock()

	log.Println("voice engine shut down")
	return nil
}

// sweepLoop purges expired transactions and context records.
func (e *VoiceEngine) sweepLoop(ctx context.Context) {
	defer e.bgWait.Done()

	ticker := time.NewTicker(e.cfg.Dispatch.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.dispatcher.Sweep(now)
			e.mu.RLock()
			engines := make([]*contextengine.Engine, 0, len(e.contexts))
			for _, ce := range e.contexts {
				engines = append(engines, ce)
			}
			e.mu.RUnlock()
			for _, ce := range engines {
				ce.Sweep()
			}
		}
	}
}

// monitorLoop watches the queue depth and periodically mines adaptation
// rules from accumulated feedback.
func (e *VoiceEngine) monitorLoop(ctx context.Context) {
	defer e.bgWait.Done()

	ticker := time.NewTicker(e.cfg.Dispatch.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.dispatcher.MonitorQueue()
			if mined, err := e.tracker.MineRules(ctx); err != nil {
				log.Printf("ERROR: rule mining failed: %v", err)
			} else if len(mined) > 0 {
				log.Printf("engine: mined %d adaptation rules", len(mined))
			}
		}
	}
}

// drainLoop executes one queued command per tick and releases due scheduled
// commands.
func (e *VoiceEngine) drainLoop(ctx context.Context) {
	defer e.bgWait.Done()

	ticker := time.NewTicker(e.cfg.Dispatch.DrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.dispatcher.DrainOne(ctx)
			e.dispatcher.DrainScheduled(ctx, now)
		}
	}
}

// Interpret classifies and extracts one utterance against the session's
// accumulated context. It records the interaction in the context engine so
// pattern detection sees every utterance.
func (e *VoiceEngine) Interpret(ctx context.Context, text string, dctx types.DomainContext) types.Interpretation {
	sessionID := e.ensureSession(dctx.SessionID)
	dctx.SessionID = sessionID
	ce := e.contextEngine(sessionID)

	locale := dctx.Locale
	if locale == "" {
		locale = e.cfg.Locale.DefaultLocale
	}

	sig := e.buildSignals(ce, dctx)
	interp := e.interp.Interpret(text, locale, sig, e.tracker.Rules())

	ce.AddContext(types.ContextInteraction, map[string]interface{}{
		"utterance": text,
		"intent":    string(interp.Intent.Name),
	}, types.LayerImmediate)

	// Confident predictions surface as follow-up suggestions.
	for _, p := range ce.Predictions() {
		interp.Suggestions = append(interp.Suggestions, p.NextAction)
		if len(interp.Suggestions) >= 5 {
			break
		}
	}
	return interp
}

// Execute runs the interpretation's top intent. Interpretations flagged for
// clarification are not executed; they produce a clarification result with
// the suggestion list instead.
func (e *VoiceEngine) Execute(ctx context.Context, interp types.Interpretation, dctx types.DomainContext) *types.Result {
	sessionID := e.ensureSession(dctx.SessionID)
	dctx.SessionID = sessionID

	if interp.NeedsClarification {
		res := &types.Result{
			Success:     false,
			Action:      "clarify",
			Message:     "I did not catch that, please restate your request",
			Suggestions: interp.Suggestions,
		}
		return res
	}

	ce := e.contextEngine(sessionID)
	cmd := &types.Command{
		ID:        uuid.NewString(),
		Intent:    interp.Intent,
		Entities:  interp.Entities,
		Snapshot:  e.contextSnapshot(ce),
		SessionID: sessionID,
		CreatedAt: dctx.Clock(),
	}

	res := e.dispatcher.Dispatch(ctx, cmd, dctx)

	ce.AddContext(types.ContextBusiness, map[string]interface{}{
		"action":  res.Action,
		"success": res.Success,
	}, types.LayerImmediate)

	e.updateProfile(ctx, sessionID, cmd, res)
	e.notify(sessionID, cmd, res)
	return res
}

// Process is the one-call convenience path: interpret, then execute.
func (e *VoiceEngine) Process(ctx context.Context, text string, dctx types.DomainContext) (types.Interpretation, *types.Result) {
	interp := e.Interpret(ctx, text, dctx)
	res := e.Execute(ctx, interp, dctx)
	return interp, res
}

// Feedback reports whether a classification was correct, attaching the
// session's current context attributes for rule mining.
func (e *VoiceEngine) Feedback(sessionID string, predicted, expected types.IntentName, correct bool) {
	ce := e.contextEngine(e.ensureSession(sessionID))
	attrs := signalAttributes(ce, types.DomainContext{})
	e.tracker.RecordFeedback(predicted, expected, attrs, correct)
}

// Metrics returns the aggregated execution metrics.
func (e *VoiceEngine) Metrics() learning.Snapshot {
	return e.tracker.Metrics()
}

// Rules returns the active adaptation rules.
func (e *VoiceEngine) Rules() []types.AdaptationRule {
	return e.tracker.Rules()
}

// ResetRules removes all adaptation rules.
func (e *VoiceEngine) ResetRules(ctx context.Context) error {
	return e.tracker.ResetRules(ctx)
}

// Predictions returns the session's current predictions.
func (e *VoiceEngine) Predictions(sessionID string) []types.Prediction {
	return e.contextEngine(e.ensureSession(sessionID)).Predictions()
}

// CurrentContext returns the session's active context records by layer.
func (e *VoiceEngine) CurrentContext(sessionID string) map[types.ContextLayer][]*types.ContextRecord {
	return e.contextEngine(e.ensureSession(sessionID)).CurrentContext()
}

// QueueDepth exposes the dispatcher queue depth for diagnostics.
func (e *VoiceEngine) QueueDepth() int {
	return e.dispatcher.QueueDepth()
}

// CallbackState exposes the callback circuit state for diagnostics.
func (e *VoiceEngine) CallbackState() string {
	return e.dispatcher.CallbackState()
}

// Locales lists the loaded rule locales.
func (e *VoiceEngine) Locales() []string {
	return e.rules.Locales()
}

// notify fans a completed command out to the registered listeners.
func (e *VoiceEngine) notify(sessionID string, cmd *types.Command, res *types.Result) {
	e.mu.RLock()
	listeners := append([]ResultListener(nil), e.listeners...)
	e.mu.RUnlock()
	for _, l := range listeners {
		l(sessionID, cmd, res)
	}
}

// buildSignals distills the session context and domain context into the
// classifier's signal set.
func (e *VoiceEngine) buildSignals(ce *contextengine.Engine, dctx types.DomainContext) interpreter.Signals {
	now := dctx.Clock()
	return interpreter.Signals{
		Page:         dctx.Page,
		Task:         dctx.Task,
		CartNotEmpty: !dctx.Cart.Empty(),
		Hour:         now.Hour(),
		Attributes:   signalAttributes(ce, dctx),
	}
}

// signalAttributes flattens the context into the attribute set adaptation
// rules match against.
func signalAttributes(ce *contextengine.Engine, dctx types.DomainContext) map[string]string {
	attrs := map[string]string{
		"meal": contextengine.MealBucket(dctx.Clock().Hour()),
	}
	if dctx.Page != "" {
		attrs["page"] = dctx.Page
	}
	if dctx.Task != "" {
		attrs["task"] = dctx.Task
	}
	if rec := ce.Resolve(types.ContextInteraction); rec != nil {
		if intent, ok := rec.Payload["intent"].(string); ok {
			attrs["last_intent"] = intent
		}
	}
	return attrs
}

// contextSnapshot captures the winning record per context type for the
// command's audit trail.
func (e *VoiceEngine) contextSnapshot(ce *contextengine.Engine) map[string]interface{} {
	snapshot := make(map[string]interface{})
	for _, ctype := range []types.ContextType{
		types.ContextUser, types.ContextLocation, types.ContextTemporal,
		types.ContextBusiness, types.ContextInteraction,
	} {
		if rec := ce.Resolve(ctype); rec != nil {
			snapshot[string(ctype)] = rec.Payload
		}
	}
	return snapshot
}
