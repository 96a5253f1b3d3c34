package interpreter

import "strconv"

// wordNumbers maps quantity words to their numeric value. The table covers
// High German, Swiss German dialect forms and English so that handlers can
// parse quantities regardless of which locale produced the entity.
var wordNumbers = map[string]int{
	// High German
	"eins": 1, "ein": 1, "eine": 1, "einen": 1,
	"zwei": 2, "drei": 3, "vier": 4, "fünf": 5,
	"sechs": 6, "sieben": 7, "acht": 8, "neun": 9, "zehn": 10,
	// Swiss German dialect
	"zwöi": 2, "drü": 3, "föif": 5, "sächs": 6,
	// English
	"one": 1, "a": 1, "an": 1,
	"two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// ParseQuantity parses a quantity from either a numeral ("3") or a number
// word ("drei", "zwöi", "three"). The boolean result reports success.
func ParseQuantity(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, true
	}
	if n, ok := wordNumbers[s]; ok {
		return n, true
	}
	return 0, false
}
