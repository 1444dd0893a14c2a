// Package priceunit converts a (price, size, unit) triple into a price per
// comparable unit so differently sized packages can be compared.
package priceunit

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewise/internal/unit"
)

const (
	// ValuePlaces is the precision kept for stored price-per-unit values.
	ValuePlaces int32 = 4
	// DisplayPlaces is the precision shown to shoppers.
	DisplayPlaces int32 = 2
)

// Result is a normalized price for one comparison basis, e.g. "per 100g".
type Result struct {
	Unit          unit.Code
	Value         decimal.Decimal
	Display       decimal.Decimal
	Label         string
	BaseQuantity  decimal.Decimal
	ConvertedSize decimal.Decimal
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

var baseQuantities = map[unit.Code]decimal.Decimal{
	unit.Gram:       hundred,
	unit.Kilogram:   hundred,
	unit.Pound:      hundred,
	unit.Ounce:      hundred,
	unit.Milliliter: hundred,
	unit.Liter:      hundred,
	unit.FluidOunce: hundred,
	unit.Gallon:     hundred,
	unit.Quart:      hundred,
	unit.Foot:       one,
	unit.Count:      one,
	unit.Piece:      one,
	unit.Pack:       one,
	unit.Each:       one,
	unit.Whole:      one,
	unit.Unit:       one,
	unit.Unknown:    one,
}

var gramFactors = map[unit.Code]decimal.Decimal{
	unit.Gram:     one,
	unit.Kilogram: decimal.NewFromInt(1000),
	unit.Pound:    decimal.RequireFromString("453.592"),
	unit.Ounce:    decimal.RequireFromString("28.3495"),
}

var milliliterFactors = map[unit.Code]decimal.Decimal{
	unit.Milliliter: one,
	unit.Liter:      decimal.NewFromInt(1000),
	unit.FluidOunce: decimal.RequireFromString("29.5735"),
	unit.Gallon:     decimal.RequireFromString("3785.41"),
	unit.Quart:      decimal.RequireFromString("946.353"),
}

var labels = map[unit.Code]string{
	unit.Foot:    "1ft",
	unit.Count:   "1ct",
	unit.Piece:   "1pc",
	unit.Pack:    "1pk",
	unit.Each:    "each",
	unit.Whole:   "each",
	unit.Unit:    "1unit",
	unit.Unknown: "1",
}

// BaseQuantity returns the comparison basis for code: 100 for weight and
// volume units, 1 for everything else.
func BaseQuantity(code unit.Code) decimal.Decimal {
	if q, ok := baseQuantities[code]; ok {
		return q
	}
	return one
}

// Label returns the human readable basis for code ("100g", "100ml", "1pc").
func Label(code unit.Code) string {
	switch unit.FamilyOf(code) {
	case unit.FamilyWeight:
		return BaseQuantity(code).String() + string(unit.Gram)
	case unit.FamilyVolume:
		return BaseQuantity(code).String() + string(unit.Milliliter)
	}
	if l, ok := labels[code]; ok {
		return l
	}
	return "1"
}

// ConvertSize expresses size in the family's base measure: grams for weight,
// milliliters for volume. Other units pass through unchanged.
func ConvertSize(size decimal.Decimal, code unit.Code) decimal.Decimal {
	if f, ok := gramFactors[code]; ok {
		return size.Mul(f)
	}
	if f, ok := milliliterFactors[code]; ok {
		return size.Mul(f)
	}
	return size
}

// ShouldCalculate reports whether Calculate would produce a result. Callers
// use it before committing side effects such as a price history record.
func ShouldCalculate(price, size decimal.Decimal, code unit.Code) bool {
	return Check(price, size, code) == nil
}

// Calculate returns price * base / converted size. The boolean is false when
// the inputs are not eligible; see Check for the reason.
func Calculate(price, size decimal.Decimal, code unit.Code) (Result, bool) {
	if Check(price, size, code) != nil {
		return Result{}, false
	}

	base := BaseQuantity(code)
	converted := ConvertSize(size, code)
	if !converted.IsPositive() {
		return Result{}, false
	}

	raw := price.Mul(base).Div(converted)
	return Result{
		Unit:          code,
		Value:         raw.Round(ValuePlaces),
		Display:       raw.Round(DisplayPlaces),
		Label:         Label(code),
		BaseQuantity:  base,
		ConvertedSize: converted,
	}, true
}
