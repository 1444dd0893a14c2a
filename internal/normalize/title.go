// Package normalize reduces scraped product titles and breadcrumb trails to a
// lowercase, noise-free form suitable for similarity comparison.
package normalize

import (
	"regexp"
	"strings"
)

// SegmentSeparator joins normalized breadcrumb segments.
const SegmentSeparator = ">"

const maxSegments = 3

var (
	separatorPattern = regexp.MustCompile(`\s*[>/]\s*`)

	sizeTokenPattern = regexp.MustCompile(`(?i)(?:\b\d+\s*[x×]\s*)?\b\d+(?:[.,]\d+)?\s*` +
		`(?:fl\.?\s*oz|fluid\s+ounces?|ounces?|oz|milliliters?|millilitres?|ml|liters?|litres?|ltr|l|` +
		`kilograms?|kgs?|grams?|gms?|g|pounds?|lbs?|gallons?|gal|quarts?|qt|` +
		`feet|ft|count|ct|packs?|pk|pcs|pieces?|pc|each|ea|units?)\b\.?`)

	brandPattern = regexp.MustCompile(`(?i)\b(?:hunt'?s|great value|kirkland(?:\s+signature)?|` +
		`market pantry|good\s*&\s*gather|simple truth(?:\s+organic)?|signature select|` +
		`o organics|member'?s mark|up\s*&\s*up|happy belly|amazon basics|` +
		`classic|original|premium|value pack|family size|brand new)\b`)

	numberPattern      = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\b`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// stopSegments are generic leading breadcrumb entries that carry no category
// signal.
var stopSegments = map[string]struct{}{
	"shop":            {},
	"home":            {},
	"grocery":         {},
	"groceries":       {},
	"all":             {},
	"all departments": {},
	"departments":     {},
	"categories":      {},
	"products":        {},
	"food":            {},
	"store":           {},
	"walmart":         {},
	"target":          {},
	"kroger":          {},
	"costco":          {},
	"amazon":          {},
	"whole foods":     {},
	"safeway":         {},
}

// Title normalizes a product title that may carry a breadcrumb prefix
// ("Shop / Grocery / Canned Goods / Hunts Tomatoes 14.5 oz"). Ancestor
// segments are cleaned of punctuation, the final segment is additionally
// stripped of sizes, brands and numbers. Blank input yields "".
func Title(raw string) string {
	return normalize(raw, true)
}

// Breadcrumb normalizes a category trail such as "Pantry > Canned Goods".
// Unlike Title, the final segment is treated as a category name, so only
// punctuation is removed from it.
func Breadcrumb(raw string) string {
	return normalize(raw, false)
}

func normalize(raw string, productTail bool) string {
	segments := Segments(raw)
	if len(segments) == 0 {
		return ""
	}

	out := make([]string, 0, len(segments))
	last := len(segments) - 1
	for i, seg := range segments {
		var cleaned string
		if i == last && productTail {
			cleaned = ProductName(seg)
		} else {
			cleaned = clean(seg)
		}
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, SegmentSeparator)
}

// Segments splits raw into its breadcrumb segments. Input is only split when
// it contains more than one separator; leading stop segments are dropped
// (never the final one) and at most the last three segments are kept.
func Segments(raw string) []string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	var parts []string
	if strings.Count(text, ">")+strings.Count(text, "/") > 1 {
		parts = separatorPattern.Split(text, -1)
	} else {
		parts = []string{text}
	}

	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}

	for len(segments) > 1 {
		if _, stop := stopSegments[clean(segments[0])]; !stop {
			break
		}
		segments = segments[1:]
	}

	if len(segments) > maxSegments {
		segments = segments[len(segments)-maxSegments:]
	}
	return segments
}

// ProductName strips size tokens ("500ml", "12 pack"), known brands and
// descriptors, bare numbers and punctuation from a single product name.
func ProductName(raw string) string {
	text := strings.ToLower(unifyApostrophes(raw))
	text = sizeTokenPattern.ReplaceAllString(text, " ")
	text = brandPattern.ReplaceAllString(text, " ")
	text = numberPattern.ReplaceAllString(text, " ")
	text = strings.NewReplacer("/", " ", "-", " ").Replace(text)
	return clean(text)
}

func clean(raw string) string {
	text := strings.ToLower(unifyApostrophes(raw))
	text = strings.ReplaceAll(text, "'", "")
	text = punctuationPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func unifyApostrophes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(s)
}
