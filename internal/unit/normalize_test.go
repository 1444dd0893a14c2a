package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	cases := []struct {
		raw  string
		want Code
		ok   bool
	}{
		{raw: "kg", want: Kilogram, ok: true},
		{raw: " KG ", want: Kilogram, ok: true},
		{raw: "Grams", want: Gram, ok: true},
		{raw: "pcs", want: Pack, ok: true},
		{raw: "pieces", want: Piece, ok: true},
		{raw: "fl oz", want: FluidOunce, ok: true},
		{raw: "oz.", want: Ounce, ok: true},
		{raw: "n/a", want: Unknown, ok: true},
		{raw: "litters", want: Liter, ok: true},
		{raw: "gallns", want: Gallon, ok: true},
		{raw: "", ok: false},
		{raw: "zzzzzzzz", ok: false},
		{raw: "hi", ok: false},
		{raw: "zz", ok: false},
		{raw: "x", ok: false},
		{raw: "kgs", want: Kilogram, ok: true},
		{raw: "ozz", want: Ounce, ok: true},
	}

	for _, tc := range cases {
		got, ok := NormalizeUnit(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got, "raw %q", tc.raw)
		}
	}
}

func TestNormalizeUnitIsIdempotent(t *testing.T) {
	for _, code := range Valid() {
		got, ok := NormalizeUnit(string(code))
		assert.True(t, ok, "code %q", code)
		assert.Equal(t, code, got)

		again, ok := NormalizeUnit(string(got))
		assert.True(t, ok)
		assert.Equal(t, got, again)
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("kg", "kg"))
	assert.Equal(t, 2, Levenshtein("", "kg"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 2, Levenshtein("litre", "liter"))
	assert.Equal(t, 1, Levenshtein("pcs", "pc"))
}

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyWeight, FamilyOf(Pound))
	assert.Equal(t, FamilyVolume, FamilyOf(Quart))
	assert.Equal(t, FamilyLength, FamilyOf(Foot))
	assert.Equal(t, FamilyCount, FamilyOf(Whole))
	assert.Equal(t, FamilyUnknown, FamilyOf(Unknown))
	assert.Equal(t, FamilyUnknown, FamilyOf(Code("furlong")))
}
