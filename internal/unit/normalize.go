package unit

import (
	"sort"
	"strings"
)

// maxCorrectionDistance bounds the fuzzy fallback of NormalizeUnit.
const maxCorrectionDistance = 2

var aliases = map[string]Code{
	"gram":          Gram,
	"grams":         Gram,
	"gr":            Gram,
	"grm":           Gram,
	"gm":            Gram,
	"gms":           Gram,
	"kilo":          Kilogram,
	"kilos":         Kilogram,
	"kilogram":      Kilogram,
	"kilograms":     Kilogram,
	"kgs":           Kilogram,
	"lb":            Pound,
	"pound":         Pound,
	"pounds":        Pound,
	"ounce":         Ounce,
	"ounces":        Ounce,
	"milliliter":    Milliliter,
	"milliliters":   Milliliter,
	"millilitre":    Milliliter,
	"millilitres":   Milliliter,
	"mls":           Milliliter,
	"liter":         Liter,
	"liters":        Liter,
	"litre":         Liter,
	"litres":        Liter,
	"ltr":           Liter,
	"lt":            Liter,
	"fl oz":         FluidOunce,
	"floz":          FluidOunce,
	"fl. oz":        FluidOunce,
	"fluid ounce":   FluidOunce,
	"fluid ounces":  FluidOunce,
	"gallon":        Gallon,
	"gallons":       Gallon,
	"quart":         Quart,
	"quarts":        Quart,
	"foot":          Foot,
	"feet":          Foot,
	"count":         Count,
	"cnt":           Count,
	"piece":         Piece,
	"pieces":        Piece,
	"pcs":           Pack,
	"pack":          Pack,
	"packs":         Pack,
	"pkg":           Pack,
	"package":       Pack,
	"ea":            Each,
	"units":         Unit,
	"na":            Unknown,
	"n/a":           Unknown,
	"not available": Unknown,
}

// correctionCandidates holds the fuzzy-match vocabulary in a fixed order so
// that ties resolve the same way on every call.
var correctionCandidates = buildCorrectionCandidates()

type correctionCandidate struct {
	key  string
	code Code
}

func buildCorrectionCandidates() []correctionCandidate {
	out := make([]correctionCandidate, 0, len(validCodes)+len(aliases))
	for _, c := range validCodes {
		out = append(out, correctionCandidate{key: strings.ToLower(string(c)), code: c})
	}
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, correctionCandidate{key: k, code: aliases[k]})
	}
	return out
}

// NormalizeUnit maps a raw unit spelling onto the closed unit set. It tries
// an exact match, then the alias table, then the closest code or alias within
// an edit distance of two. Keys no longer than that distance are never
// corrected, since any of them is within reach of some short code. The
// boolean is false when nothing qualifies.
func NormalizeUnit(raw string) (Code, bool) {
	key := cleanUnitKey(raw)
	if key == "" {
		return "", false
	}

	if c, ok := lookupValid(key); ok {
		return c, true
	}
	if c, ok := aliases[key]; ok {
		return c, true
	}
	if len([]rune(key)) <= maxCorrectionDistance {
		return "", false
	}

	best := -1
	var bestCode Code
	for _, cand := range correctionCandidates {
		d := Levenshtein(key, cand.key)
		if d > maxCorrectionDistance {
			continue
		}
		if best == -1 || d < best {
			best = d
			bestCode = cand.code
		}
	}
	if best == -1 {
		return "", false
	}
	return bestCode, true
}

func cleanUnitKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimRight(key, ".")
	return strings.Join(strings.Fields(key), " ")
}
