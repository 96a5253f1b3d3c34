package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	rules, err := LoadRules("", "de-CH")
	require.NoError(t, err)
	return NewNormalizer(rules)
}

// TestNormalizeCaseAndPunctuation verifies case folding, punctuation
// stripping and whitespace collapsing.
func TestNormalizeCaseAndPunctuation(t *testing.T) {
	n := testNormalizer(t)

	got := n.Normalize("  Ich möchte,   eine PIZZA!! ", "de-CH")
	assert.Equal(t, "ich möchte eine pizza", got)
}

// TestNormalizeDialectSubstitution verifies dialect phrases are rewritten to
// canonical tokens, longest phrase first.
func TestNormalizeDialectSubstitution(t *testing.T) {
	n := testNormalizer(t)

	assert.Equal(t, "ich möchte zwei pizza", n.Normalize("ich wott zwöi Pizza", "de-CH"))
	assert.Equal(t, "ich hätte gern etwas wasser", n.Normalize("ich hätt gern es bitzli Wasser", "de-CH"))
}

// TestNormalizeSpellingCorrection verifies the fixed mis-transcription table.
func TestNormalizeSpellingCorrection(t *testing.T) {
	n := testNormalizer(t)

	assert.Equal(t, "eine pizza bestellen", n.Normalize("eine pizzza bestelen", "de-CH"))
}

// TestNormalizeEmptyInput verifies empty input yields empty output.
func TestNormalizeEmptyInput(t *testing.T) {
	n := testNormalizer(t)

	assert.Equal(t, "", n.Normalize("", "de-CH"))
	assert.Equal(t, "", n.Normalize("   \t ", "de-CH"))
}

// TestNormalizeDoesNotRewriteInsideWords verifies dialect substitution is
// word-boundary aware.
func TestNormalizeDoesNotRewriteInsideWords(t *testing.T) {
	n := testNormalizer(t)

	// "eis" is a dialect entry (glace→eis is the value, but "eis" itself is
	// not a key); ensure a word containing a key substring is untouched.
	got := n.Normalize("Weindrü", "de-CH")
	assert.Equal(t, "weindrü", got)
}
