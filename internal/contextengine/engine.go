// Package contextengine owns the layered stack of situational context
// records, detects recurring, temporal and sequential patterns across them
// and emits short-horizon predictions consumed by the interpreter.
package contextengine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

// Filter selects context records on read. Zero values mean "no constraint".
type Filter struct {
	Type          types.ContextType
	Layer         *types.ContextLayer
	MinConfidence float64
}

// Engine is the layered context store. Records flow active → expired by TTL
// only; newer records of the same type/layer coexist with older ones and
// readers pick by layer/type/recency. All writes go through AddContext.
type Engine struct {
	mu sync.RWMutex

	cfg      config.ClassifierConfig
	patterns []TriggerPattern
	records  []*types.ContextRecord

	predictions []types.Prediction

	// factor multiplies prediction confidence for locale-specific
	// adjustment; zero means the default of 1.0.
	factor float64

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates a context engine with the default pattern catalog.
func New(cfg config.ClassifierConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		patterns: defaultPatterns(),
		now:      time.Now,
	}
}

// SetClock overrides the engine's clock. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// AddContext creates a record of the given type and layer with the default
// TTL, appends it to the bounded session history and runs pattern analysis.
// It returns the created record.
func (e *Engine) AddContext(ctype types.ContextType, payload map[string]interface{}, layer types.ContextLayer) *types.ContextRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	rec := &types.ContextRecord{
		ID:         uuid.NewString(),
		Type:       ctype,
		Layer:      layer,
		Payload:    payload,
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.cfg.ContextTTL),
		Confidence: 1.0,
		Active:     true,
	}
	e.append(rec)

	e.analyze(rec, now)
	return rec
}

// append adds rec to the history, dropping the oldest record when the bound
// is exceeded.
func (e *Engine) append(rec *types.ContextRecord) {
	e.records = append(e.records, rec)
	if len(e.records) > e.cfg.HistoryLimit {
		e.records = e.records[len(e.records)-e.cfg.HistoryLimit:]
	}
}

// GetContext returns the active, non-expired records matching the filter,
// sorted by layer descending then creation time descending: more specific
// and more recent context wins when merging.
func (e *Engine) GetContext(f Filter) []*types.ContextRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	var out []*types.ContextRecord
	for _, rec := range e.records {
		if !rec.Visible(now) {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		if f.Layer != nil && rec.Layer != *f.Layer {
			continue
		}
		if rec.Confidence < f.MinConfidence {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer > out[j].Layer
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CurrentContext returns the active record set partitioned by layer.
func (e *Engine) CurrentContext() map[types.ContextLayer][]*types.ContextRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	out := make(map[types.ContextLayer][]*types.ContextRecord)
	for _, rec := range e.records {
		if rec.Visible(now) {
			out[rec.Layer] = append(out[rec.Layer], rec)
		}
	}
	return out
}

// Resolve returns the winning record of the given type: highest layer first,
// most recent on equal layer. Returns nil when no visible record matches.
func (e *Engine) Resolve(ctype types.ContextType) *types.ContextRecord {
	recs := e.GetContext(Filter{Type: ctype})
	if len(recs) == 0 {
		return nil
	}
	return recs[0]
}

// Predictions returns the currently held predictions, most recent first.
func (e *Engine) Predictions() []types.Prediction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]types.Prediction, len(e.predictions))
	copy(out, e.predictions)
	return out
}

// Sweep drops expired records from the history and returns how many were
// removed. Expiry is the only removal path besides Reset.
func (e *Engine) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	kept := e.records[:0]
	removed := 0
	for _, rec := range e.records {
		if rec.Visible(now) {
			kept = append(kept, rec)
		} else {
			removed++
		}
	}
	e.records = kept
	return removed
}

// Reset clears all records and predictions (bulk teardown).
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = nil
	e.predictions = nil
}

// Size returns the number of records currently held, expired or not.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}
