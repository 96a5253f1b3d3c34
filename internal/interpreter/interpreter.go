package interpreter

import (
	"fmt"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

// Interpreter bundles the normalizer, classifier and extractor behind one
// call that produces a merged Interpretation for an utterance.
type Interpreter struct {
	normalizer *Normalizer
	classifier *Classifier
	extractor  *Extractor
	cfg        config.ClassifierConfig
}

// New creates an interpreter over the given rule registry.
func New(rules *Registry, cfg config.ClassifierConfig) *Interpreter {
	return &Interpreter{
		normalizer: NewNormalizer(rules),
		classifier: NewClassifier(rules, cfg),
		extractor:  NewExtractor(rules),
		cfg:        cfg,
	}
}

// Interpret normalizes text, classifies the intent, extracts entities and
// merges everything into an Interpretation. It never fails: unclassifiable
// input yields the unknown intent with confidence zero and a clarification
// flag.
func (i *Interpreter) Interpret(text, locale string, sig Signals, adaptations []types.AdaptationRule) types.Interpretation {
	normText := i.normalizer.Normalize(text, locale)

	ranked := i.classifier.Classify(normText, locale, sig, adaptations)
	top := ranked[0]

	entities := i.extractor.Extract(normText, locale, sig)
	entities = Enrich(top.Name, entities, sig)

	interp := types.Interpretation{
		Intent:     top,
		Entities:   entities,
		Confidence: top.Confidence,
		Metadata: map[string]interface{}{
			"normalized_text": normText,
			"locale":          locale,
		},
	}
	if len(ranked) > 1 {
		interp.Alternatives = ranked[1:]
	}

	if top.Confidence < i.cfg.MinConfidence {
		interp.NeedsClarification = true
		interp.Suggestions = clarificationSuggestions(ranked)
	}
	return interp
}

// clarificationSuggestions builds the restate/choose prompts for a
// low-confidence interpretation.
func clarificationSuggestions(ranked []types.Intent) []string {
	suggestions := []string{"Please restate your request."}
	limit := 3
	if len(ranked) < limit {
		limit = len(ranked)
	}
	for _, alt := range ranked[:limit] {
		if alt.Name == types.IntentUnknown || alt.Confidence == 0 {
			continue
		}
		suggestions = append(suggestions, fmt.Sprintf("Did you mean %q?", alt.Name))
	}
	return suggestions
}
