// Package interpreter turns a transcribed utterance into a ranked intent list
// and a resolved entity set. It owns text normalization, the declarative
// locale rule tables, the intent classifier and the entity extractor.
package interpreter

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ordervox/ordervox/pkg/types"
)

//go:embed rules/*.yaml
var embeddedRules embed.FS

// IntentRule declares the trigger patterns for one intent in one locale.
type IntentRule struct {
	Intent     types.IntentName `yaml:"intent"`
	Confidence float64          `yaml:"confidence"`
	Triggers   []string         `yaml:"triggers"`
}

// EntityRule declares the value lists for one entity type in one locale.
// Values maps a canonical normalized value to its surface forms.
type EntityRule struct {
	Type       types.EntityType    `yaml:"type"`
	Category   string              `yaml:"category"`
	Confidence float64             `yaml:"confidence"`
	Values     map[string][]string `yaml:"values"`
}

// RuleSet is the full declarative rule table for one locale: dialect
// substitutions, spelling corrections, intent triggers and entity values.
// Rule data stays external to the matching logic.
type RuleSet struct {
	Locale   string            `yaml:"locale"`
	Dialect  map[string]string `yaml:"dialect"`
	Spelling map[string]string `yaml:"spelling"`
	Intents  []IntentRule      `yaml:"intents"`
	Entities []EntityRule      `yaml:"entities"`
}

// validate checks the invariants a rule set must satisfy before use.
func (rs *RuleSet) validate() error {
	if rs.Locale == "" {
		return fmt.Errorf("rule set has no locale")
	}
	if len(rs.Intents) == 0 {
		return fmt.Errorf("rule set %q declares no intents", rs.Locale)
	}
	for _, ir := range rs.Intents {
		if ir.Confidence < 0 || ir.Confidence > 1 {
			return fmt.Errorf("rule set %q: intent %q confidence %f out of range",
				rs.Locale, ir.Intent, ir.Confidence)
		}
		if len(ir.Triggers) == 0 {
			return fmt.Errorf("rule set %q: intent %q has no triggers", rs.Locale, ir.Intent)
		}
	}
	for _, er := range rs.Entities {
		if er.Confidence < 0 || er.Confidence > 1 {
			return fmt.Errorf("rule set %q: entity %q confidence %f out of range",
				rs.Locale, er.Type, er.Confidence)
		}
	}
	return nil
}

// Registry holds the loaded rule sets keyed by locale and resolves lookups
// with language-prefix and default-locale fallback.
type Registry struct {
	sets          map[string]*RuleSet
	defaultLocale string
}

// LoadRules loads the embedded rule tables, then overlays any YAML files
// found in overrideDir (same format, matched by locale field). An empty
// overrideDir loads embedded rules only. It fails when no rule set can be
// loaded or the default locale has no rule set: missing locale data is a
// fatal startup error, not a degraded mode.
func LoadRules(overrideDir, defaultLocale string) (*Registry, error) {
	reg := &Registry{
		sets:          make(map[string]*RuleSet),
		defaultLocale: defaultLocale,
	}

	entries, err := fs.ReadDir(embeddedRules, "rules")
	if err != nil {
		return nil, fmt.Errorf("interpreter: failed to read embedded rules: %w", err)
	}
	for _, entry := range entries {
		data, err := embeddedRules.ReadFile("rules/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("interpreter: failed to read embedded %s: %w", entry.Name(), err)
		}
		if err := reg.add(data, entry.Name()); err != nil {
			return nil, err
		}
	}

	if overrideDir != "" {
		files, err := filepath.Glob(filepath.Join(overrideDir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("interpreter: failed to scan rules dir %s: %w", overrideDir, err)
		}
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("interpreter: failed to read %s: %w", f, err)
			}
			if err := reg.add(data, f); err != nil {
				return nil, err
			}
		}
	}

	if len(reg.sets) == 0 {
		return nil, fmt.Errorf("interpreter: no locale rule sets loaded")
	}
	if reg.ForLocale(defaultLocale) == nil {
		return nil, fmt.Errorf("interpreter: no rule set for default locale %q", defaultLocale)
	}
	return reg, nil
}

// add parses and validates one rule document and registers it, replacing any
// previously loaded set for the same locale.
func (r *Registry) add(data []byte, source string) error {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return fmt.Errorf("interpreter: failed to parse rule set %s: %w", source, err)
	}
	if err := rs.validate(); err != nil {
		return fmt.Errorf("interpreter: invalid rule set %s: %w", source, err)
	}
	r.sets[rs.Locale] = &rs
	return nil
}

// ForLocale resolves the rule set for a locale tag. Resolution order: exact
// match, language prefix ("de-CH" → "de"), the configured default locale.
// Returns nil when nothing matches.
func (r *Registry) ForLocale(locale string) *RuleSet {
	if rs, ok := r.sets[locale]; ok {
		return rs
	}
	if i := strings.IndexByte(locale, '-'); i > 0 {
		if rs, ok := r.sets[locale[:i]]; ok {
			return rs
		}
	}
	if rs, ok := r.sets[r.defaultLocale]; ok {
		return rs
	}
	if i := strings.IndexByte(r.defaultLocale, '-'); i > 0 {
		if rs, ok := r.sets[r.defaultLocale[:i]]; ok {
			return rs
		}
	}
	return nil
}

// Locales returns the locale tags with loaded rule sets.
func (r *Registry) Locales() []string {
	out := make([]string, 0, len(r.sets))
	for k := range r.sets {
		out = append(out, k)
	}
	return out
}
