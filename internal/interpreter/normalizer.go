package interpreter

import (
	"strings"
	"unicode"
)

// Normalizer cleans raw utterance text before classification: case folding,
// punctuation stripping, whitespace collapsing, dialect substitution and a
// small fixed spelling-correction pass. It has no failure modes; empty input
// yields empty output.
type Normalizer struct {
	rules *Registry
}

// NewNormalizer creates a normalizer backed by the given rule registry.
func NewNormalizer(rules *Registry) *Normalizer {
	return &Normalizer{rules: rules}
}

// Normalize returns the canonical form of text for the given locale.
func (n *Normalizer) Normalize(text, locale string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	out := strings.ToLower(text)
	out = stripPunctuation(out)
	out = collapseWhitespace(out)

	rs := n.rules.ForLocale(locale)
	if rs == nil {
		return out
	}

	out = substitutePhrases(out, rs.Dialect)
	out = correctSpelling(out, rs.Spelling)
	return collapseWhitespace(out)
}

// stripPunctuation removes everything that is not a letter, digit or space.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else if unicode.IsSpace(r) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// collapseWhitespace squeezes runs of spaces and trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// substitutePhrases replaces dialect phrases with their canonical forms.
// Longer phrases are applied first so that "ich hätt gern" wins over a
// shorter overlapping entry. Replacement is word-boundary aware.
func substitutePhrases(s string, table map[string]string) string {
	if len(table) == 0 {
		return s
	}

	phrases := make([]string, 0, len(table))
	for p := range table {
		phrases = append(phrases, p)
	}
	// Insertion order of map iteration is random; sort by length descending
	// (stable enough: equal-length order does not affect the result).
	for i := 0; i < len(phrases); i++ {
		for j := i + 1; j < len(phrases); j++ {
			if len(phrases[j]) > len(phrases[i]) {
				phrases[i], phrases[j] = phrases[j], phrases[i]
			}
		}
	}

	for _, p := range phrases {
		s = replaceWord(s, p, table[p])
	}
	return s
}

// correctSpelling fixes common mis-transcriptions token by token.
func correctSpelling(s string, table map[string]string) string {
	if len(table) == 0 {
		return s
	}
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if fixed, ok := table[tok]; ok {
			tokens[i] = fixed
		}
	}
	return strings.Join(tokens, " ")
}

// replaceWord replaces every boundary-delimited occurrence of old in s.
func replaceWord(s, old, new string) string {
	var b strings.Builder
	for {
		idx := indexWord(s, old, 0)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(new)
		s = s[idx+len(old):]
	}
}

// indexWord finds the byte offset of the first occurrence of sub in s at or
// after from, where the match must sit on word boundaries (neighbouring
// runes are not letters or digits). Returns -1 when not found.
func indexWord(s, sub string, from int) int {
	for start := from; start <= len(s)-len(sub); {
		idx := strings.Index(s[start:], sub)
		if idx < 0 {
			return -1
		}
		abs := start + idx
		if isBoundary(s, abs, abs+len(sub)) {
			return abs
		}
		start = abs + 1
	}
	return -1
}

// isBoundary reports whether s[start:end] sits on word boundaries.
func isBoundary(s string, start, end int) bool {
	if start > 0 {
		r := lastRune(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r := firstRune(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
