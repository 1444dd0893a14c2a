package unit

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Parsed is the (size, unit) pair extracted from a title. A nil Size or an
// empty Unit means nothing was found; callers leave existing values alone.
type Parsed struct {
	Size *decimal.Decimal
	Unit Code
}

func (p Parsed) HasSize() bool { return p.Size != nil }

func (p Parsed) HasUnit() bool { return p.Unit != "" }

const numberExpr = `(\d+(?:[.,]\d+)?)`

type titlePattern struct {
	unit Code
	re   *regexp.Regexp
	// implicitOne units default to a size of 1 when no numeral precedes
	// the token ("Pack", "Whole").
	implicitOne bool
}

// Order matters: the first pattern that matches the end of the title wins,
// and several tokens are substrings of others.
var titlePatterns = []titlePattern{
	newTitlePattern(FluidOunce, `fl\.?\s*oz|fluid\s+ounces?|fl`, false),
	newTitlePattern(Gallon, `gallons?|gal`, false),
	newTitlePattern(Quart, `quarts?|qt`, false),
	newTitlePattern(Milliliter, `milliliters?|millilitres?|ml`, false),
	newTitlePattern(Liter, `liters?|litres?|ltr|lt|l`, false),
	newTitlePattern(Kilogram, `kilograms?|kilos?|kgs?`, false),
	newTitlePattern(Pound, `pounds?|lbs?`, false),
	newTitlePattern(Ounce, `ounces?|oz`, false),
	newTitlePattern(Gram, `grams?|gms?|gr|g`, false),
	newTitlePattern(Foot, `feet|foot|ft`, false),
	newTitlePattern(Count, `count|ct`, false),
	newTitlePattern(Pack, `packs?|pkg|pk|pcs`, true),
	newTitlePattern(Piece, `pieces?|pc`, true),
	newTitlePattern(Each, `each|ea`, true),
	newTitlePattern(Whole, `whole`, true),
	newTitlePattern(Unit, `units?`, true),
}

var (
	trailingNumberPattern = regexp.MustCompile(numberExpr + `\s*$`)
	trailingNoise         = ")]}.,;:!*-"
)

func newTitlePattern(code Code, tokens string, implicitOne bool) titlePattern {
	// The number may be joined to the unit by spaces or a hyphen: "12-Pack".
	expr := `(?i)` + numberExpr + `[\s-]*(?:` + tokens + `)\.?$`
	if implicitOne {
		expr = `(?i)(?:` + numberExpr + `[\s-]*|\b)(?:` + tokens + `)\.?$`
	}
	return titlePattern{unit: code, re: regexp.MustCompile(expr), implicitOne: implicitOne}
}

// ParseFromTitle extracts a trailing size and unit from title. When no unit
// token matches, a bare trailing number is reported with the Unknown unit.
// It never fails; an empty Parsed means nothing was recognized.
func ParseFromTitle(title string) Parsed {
	text := strings.TrimRight(strings.TrimSpace(title), trailingNoise+" \t")
	if text == "" {
		return Parsed{}
	}

	for _, p := range titlePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if size, ok := parseNumber(m[1]); ok {
			return Parsed{Size: &size, Unit: p.unit}
		}
		if p.implicitOne {
			one := decimal.NewFromInt(1)
			return Parsed{Size: &one, Unit: p.unit}
		}
	}

	if m := trailingNumberPattern.FindStringSubmatch(text); m != nil {
		if size, ok := parseNumber(m[1]); ok {
			return Parsed{Size: &size, Unit: Unknown}
		}
	}
	return Parsed{}
}

func parseNumber(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
