// Package unit extracts and normalizes measurement units from free-text
// product titles.
package unit

import "strings"

// Code is a normalized unit code drawn from a fixed, closed set.
type Code string

const (
	Gram       Code = "g"
	Kilogram   Code = "kg"
	Pound      Code = "lbs"
	Ounce      Code = "oz"
	Milliliter Code = "ml"
	Liter      Code = "l"
	FluidOunce Code = "fl"
	Gallon     Code = "gal"
	Quart      Code = "qt"
	Foot       Code = "ft"
	Count      Code = "ct"
	Piece      Code = "pc"
	Pack       Code = "pk"
	Each       Code = "each"
	Whole      Code = "whole"
	Unit       Code = "unit"
	Unknown    Code = "N/A"
)

// Family groups unit codes that share a comparison basis.
type Family string

const (
	FamilyWeight  Family = "weight"
	FamilyVolume  Family = "volume"
	FamilyLength  Family = "length"
	FamilyCount   Family = "count"
	FamilyUnknown Family = "unknown"
)

var validCodes = []Code{
	Gram, Kilogram, Pound, Ounce,
	Milliliter, Liter, FluidOunce, Gallon, Quart,
	Foot,
	Count, Piece, Pack, Each, Whole, Unit,
	Unknown,
}

var families = map[Code]Family{
	Gram:       FamilyWeight,
	Kilogram:   FamilyWeight,
	Pound:      FamilyWeight,
	Ounce:      FamilyWeight,
	Milliliter: FamilyVolume,
	Liter:      FamilyVolume,
	FluidOunce: FamilyVolume,
	Gallon:     FamilyVolume,
	Quart:      FamilyVolume,
	Foot:       FamilyLength,
	Count:      FamilyCount,
	Piece:      FamilyCount,
	Pack:       FamilyCount,
	Each:       FamilyCount,
	Whole:      FamilyCount,
	Unit:       FamilyCount,
	Unknown:    FamilyUnknown,
}

func (c Code) String() string { return string(c) }

// Valid returns the closed set of unit codes in declaration order.
func Valid() []Code {
	out := make([]Code, len(validCodes))
	copy(out, validCodes)
	return out
}

// IsValid reports whether c belongs to the closed unit set.
func IsValid(c Code) bool {
	_, ok := families[c]
	return ok
}

// FamilyOf returns the comparison family of c, or FamilyUnknown for codes
// outside the closed set.
func FamilyOf(c Code) Family {
	if f, ok := families[c]; ok {
		return f
	}
	return FamilyUnknown
}

func lookupValid(raw string) (Code, bool) {
	for _, c := range validCodes {
		if strings.EqualFold(string(c), raw) {
			return c, true
		}
	}
	return "", false
}
