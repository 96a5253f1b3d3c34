// Package learning aggregates execution metrics and mines adaptation rules
// from repeated misclassifications, feeding confidence boosts back into the
// classifier.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/pkg/types"
)

const (
	// ruleKeyPrefix namespaces persisted adaptation rules in the KV store.
	ruleKeyPrefix = "adaptation:"

	// minMisclassifications is the group size required before a rule is mined.
	minMisclassifications = 5

	// sharedAttributeRatio is the fraction of the group that must share one
	// attribute value for it to count as the common cause.
	sharedAttributeRatio = 0.6

	// minedRuleDelta is the confidence boost a mined rule applies.
	minedRuleDelta = 0.1
)

// IntentStats tracks per-intent outcome counters.
type IntentStats struct {
	Executions int `json:"executions"`
	Successes  int `json:"successes"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
}

// Accuracy returns the fraction of feedback-confirmed correct predictions.
func (s *IntentStats) Accuracy() float64 {
	total := s.Correct + s.Incorrect
	if total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(total)
}

// Snapshot is a point-in-time copy of the aggregated metrics.
type Snapshot struct {
	TotalCommands  int                              `json:"total_commands"`
	Successes      int                              `json:"successes"`
	Failures       int                              `json:"failures"`
	AverageLatency time.Duration                    `json:"average_latency"`
	PerIntent      map[types.IntentName]IntentStats `json:"per_intent"`
	PerError       map[types.ErrorCode]int          `json:"per_error"`
	RuleCount      int                              `json:"rule_count"`
}

// feedbackEntry is one explicit correctness report about a classification.
type feedbackEntry struct {
	Predicted types.IntentName
	Expected  types.IntentName
	Attrs     map[string]string
	Correct   bool
	At        time.Time
}

// Tracker accumulates metrics and feedback, mines adaptation rules and
// persists them through the injected key-value store.
type Tracker struct {
	mu sync.RWMutex

	store storage.KVStore

	totalCommands int
	successes     int
	failures      int
	totalLatency  time.Duration
	perIntent     map[types.IntentName]*IntentStats
	perError      map[types.ErrorCode]int

	feedback []feedbackEntry
	rules    []types.AdaptationRule
}

// NewTracker creates a tracker and loads previously persisted adaptation
// rules from the store.
func NewTracker(ctx context.Context, store storage.KVStore) (*Tracker, error) {
	t := &Tracker{
		store:     store,
		perIntent: make(map[types.IntentName]*IntentStats),
		perError:  make(map[types.ErrorCode]int),
	}

	keys, err := store.Keys(ctx, ruleKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("learning: failed to list adaptation rules: %w", err)
	}
	for _, key := range keys {
		data, err := store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("learning: failed to load rule %s: %w", key, err)
		}
		var rule types.AdaptationRule
		if err := json.Unmarshal(data, &rule); err != nil {
			log.Printf("WARNING: skipping corrupt adaptation rule %s: %v", key, err)
			continue
		}
		t.rules = append(t.rules, rule)
	}
	return t, nil
}

// RecordExecution updates running totals for one command outcome.
func (t *Tracker) RecordExecution(intent types.IntentName, success bool, latency time.Duration, code types.ErrorCode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalCommands++
	t.totalLatency += latency
	if success {
		t.successes++
	} else {
		t.failures++
		if code != "" {
			t.perError[code]++
		}
	}

	stats := t.intentStats(intent)
	stats.Executions++
	if success {
		stats.Successes++
	}
}

// RecordFeedback logs an explicit correctness report. Attrs is the context
// attribute set that was active when the prediction was made; it is what
// rule mining looks for commonality in.
func (t *Tracker) RecordFeedback(predicted, expected types.IntentName, attrs map[string]string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.feedback = append(t.feedback, feedbackEntry{
		Predicted: predicted,
		Expected:  expected,
		Attrs:     attrs,
		Correct:   correct,
		At:        time.Now(),
	})

	stats := t.intentStats(expected)
	if correct {
		stats.Correct++
	} else {
		stats.Incorrect++
	}
}

// MineRules inspects the incorrect predictions grouped by expected intent.
// When at least five misclassifications of the same intent share a common
// context attribute value (across >= 60% of the group), a new adaptation
// rule is created that boosts that intent whenever the attribute recurs.
// Newly mined rules are persisted and returned.
func (t *Tracker) MineRules(ctx context.Context) ([]types.AdaptationRule, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	groups := make(map[types.IntentName][]feedbackEntry)
	for _, fb := range t.feedback {
		if !fb.Correct && fb.Expected != "" {
			groups[fb.Expected] = append(groups[fb.Expected], fb)
		}
	}

	var mined []types.AdaptationRule
	for intent, group := range groups {
		if len(group) < minMisclassifications {
			continue
		}

		attr, value, ok := dominantAttribute(group)
		if !ok || t.hasRule(intent, attr, value) {
			continue
		}

		rule := types.AdaptationRule{
			ID:              uuid.NewString(),
			Intent:          intent,
			Attribute:       attr,
			Value:           value,
			ConfidenceDelta: minedRuleDelta,
			Description: fmt.Sprintf("boost %q when %s=%s (mined from %d misclassifications)",
				intent, attr, value, len(group)),
			CreatedAt: time.Now(),
		}

		data, err := json.Marshal(rule)
		if err != nil {
			return nil, fmt.Errorf("learning: failed to marshal rule: %w", err)
		}
		if err := t.store.Set(ctx, ruleKeyPrefix+rule.ID, data); err != nil {
			return nil, fmt.Errorf("learning: failed to persist rule: %w", err)
		}

		t.rules = append(t.rules, rule)
		mined = append(mined, rule)
		log.Printf("learning: mined adaptation rule for %q on %s=%s", intent, attr, value)
	}
	return mined, nil
}

// dominantAttribute finds an attribute whose single value recurs across at
// least sharedAttributeRatio of the group.
func dominantAttribute(group []feedbackEntry) (attr, value string, ok bool) {
	counts := make(map[string]map[string]int)
	for _, fb := range group {
		for k, v := range fb.Attrs {
			if counts[k] == nil {
				counts[k] = make(map[string]int)
			}
			counts[k][v]++
		}
	}

	need := int(float64(len(group))*sharedAttributeRatio + 0.5)
	bestCount := 0
	for k, values := range counts {
		for v, c := range values {
			if c >= need && c > bestCount {
				attr, value, bestCount = k, v, c
			}
		}
	}
	return attr, value, bestCount > 0
}

// hasRule reports whether an equivalent rule already exists.
func (t *Tracker) hasRule(intent types.IntentName, attr, value string) bool {
	for _, r := range t.rules {
		if r.Intent == intent && r.Attribute == attr && r.Value == value {
			return true
		}
	}
	return false
}

// Rules returns a copy of the active adaptation rules.
func (t *Tracker) Rules() []types.AdaptationRule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.AdaptationRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// ResetRules removes all adaptation rules, both in memory and from the
// store. This is the only removal path: rules never expire on their own.
func (t *Tracker) ResetRules(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys, err := t.store.Keys(ctx, ruleKeyPrefix)
	if err != nil {
		return fmt.Errorf("learning: failed to list rules for reset: %w", err)
	}
	for _, key := range keys {
		if err := t.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("learning: failed to remove rule %s: %w", key, err)
		}
	}
	t.rules = nil
	t.feedback = nil
	return nil
}

// Metrics returns a point-in-time snapshot of the aggregated counters.
func (t *Tracker) Metrics() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{
		TotalCommands: t.totalCommands,
		Successes:     t.successes,
		Failures:      t.failures,
		PerIntent:     make(map[types.IntentName]IntentStats, len(t.perIntent)),
		PerError:      make(map[types.ErrorCode]int, len(t.perError)),
		RuleCount:     len(t.rules),
	}
	if t.totalCommands > 0 {
		snap.AverageLatency = t.totalLatency / time.Duration(t.totalCommands)
	}
	for k, v := range t.perIntent {
		snap.PerIntent[k] = *v
	}
	for k, v := range t.perError {
		snap.PerError[k] = v
	}
	return snap
}

// intentStats returns the mutable stats bucket for an intent. Caller holds
// the lock.
func (t *Tracker) intentStats(intent types.IntentName) *IntentStats {
	stats, ok := t.perIntent[intent]
	if !ok {
		stats = &IntentStats{}
		t.perIntent[intent] = stats
	}
	return stats
}
