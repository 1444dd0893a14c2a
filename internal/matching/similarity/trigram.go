// Package similarity scores strings with the same trigram model PostgreSQL's
// pg_trgm extension uses, so in-process search ranks rows the way
// similarity() does.
package similarity

import (
	"strings"
	"unicode"
)

// Trigrams returns the set of trigrams of s. Each alphanumeric word is
// lowercased and padded with two leading blanks and one trailing blank.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range words(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Score returns the fraction of trigrams shared by a and b, in [0,1].
func Score(a, b string) float64 {
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// Best returns the highest Score of query against any of fields.
func Best(query string, fields ...string) float64 {
	best := 0.0
	for _, f := range fields {
		if s := Score(query, f); s > best {
			best = s
		}
	}
	return best
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
