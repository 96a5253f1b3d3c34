package interpreter

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ordervox/ordervox/pkg/types"
)

// Extractor scans normalized text for typed entities using the locale's
// value-list rules and resolves overlapping matches.
type Extractor struct {
	rules *Registry
}

// NewExtractor creates an extractor backed by the given rule registry.
func NewExtractor(rules *Registry) *Extractor {
	return &Extractor{rules: rules}
}

// Extract returns the resolved, non-overlapping entity set for the text.
// Conflicts are resolved by a greedy confidence-first sweep: candidates are
// sorted by confidence descending (stable, so extraction order breaks ties)
// and a candidate is kept only if its span does not overlap any already
// accepted one. The result is ordered by span start.
func (e *Extractor) Extract(normText, locale string, sig Signals) []types.Entity {
	if strings.TrimSpace(normText) == "" {
		return nil
	}

	rs := e.rules.ForLocale(locale)
	if rs == nil {
		return nil
	}

	candidates := e.collect(normText, rs)
	resolved := resolveOverlaps(candidates)

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Span.Start < resolved[j].Span.Start
	})
	return resolved
}

// collect gathers every rule match in deterministic order: rules in
// declaration order, canonical values sorted, surface forms in declaration
// order, occurrences left to right. Numeral quantities are collected last.
func (e *Extractor) collect(normText string, rs *RuleSet) []types.Entity {
	var candidates []types.Entity

	for _, rule := range rs.Entities {
		canonicals := make([]string, 0, len(rule.Values))
		for c := range rule.Values {
			canonicals = append(canonicals, c)
		}
		sort.Strings(canonicals)

		for _, canonical := range canonicals {
			for _, surface := range rule.Values[canonical] {
				for from := 0; ; {
					idx := indexWord(normText, surface, from)
					if idx < 0 {
						break
					}
					candidates = append(candidates, types.Entity{
						Type:       rule.Type,
						Category:   rule.Category,
						RawValue:   normText[idx : idx+len(surface)],
						Normalized: canonical,
						Span:       types.Span{Start: idx, End: idx + len(surface)},
						Confidence: rule.Confidence,
					})
					from = idx + len(surface)
				}
			}
		}
	}

	candidates = append(candidates, numeralQuantities(normText)...)
	return candidates
}

// numeralQuantities finds digit tokens and emits them as quantity candidates
// with a confidence above the word-based quantity rules, so "2" beats "zwei"
// if both somehow cover the same span.
func numeralQuantities(normText string) []types.Entity {
	var out []types.Entity
	offset := 0
	for _, tok := range strings.Fields(normText) {
		idx := strings.Index(normText[offset:], tok)
		if idx < 0 {
			continue
		}
		start := offset + idx
		offset = start + len(tok)

		if !isDigits(tok) {
			continue
		}
		out = append(out, types.Entity{
			Type:       types.EntityQuantity,
			Category:   "amount",
			RawValue:   tok,
			Normalized: tok,
			Span:       types.Span{Start: start, End: start + len(tok)},
			Confidence: 0.95,
		})
	}
	return out
}

// resolveOverlaps keeps the highest-confidence candidate for every span
// region. Stable sort preserves extraction order for equal confidence.
func resolveOverlaps(candidates []types.Entity) []types.Entity {
	sorted := make([]types.Entity, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var accepted []types.Entity
	for _, cand := range sorted {
		conflict := false
		for _, kept := range accepted {
			if cand.Span.Overlaps(kept.Span) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, cand)
		}
	}
	return accepted
}

// Enrich injects intent-specific defaults for required entities that are
// missing but inferable. An order-class intent without a quantity gets an
// inferred quantity of 1; a missing product can be inferred when the current
// page denotes a specific product ("product/<name>").
func Enrich(intent types.IntentName, entities []types.Entity, sig Signals) []types.Entity {
	if types.CategoryOf(intent) != types.CategoryOrder {
		return entities
	}

	if types.FindEntity(entities, types.EntityQuantity) == nil {
		entities = append(entities, types.Entity{
			Type:       types.EntityQuantity,
			Category:   "amount",
			Normalized: "1",
			Confidence: 0.8,
			Inferred:   true,
		})
	}

	if types.FindEntity(entities, types.EntityProduct) == nil {
		if name, ok := strings.CutPrefix(sig.Page, "product/"); ok && name != "" {
			entities = append(entities, types.Entity{
				Type:       types.EntityProduct,
				Category:   "food",
				Normalized: name,
				Confidence: 0.75,
				Inferred:   true,
			})
		}
	}
	return entities
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > '9' {
			return false
		}
	}
	return true
}
