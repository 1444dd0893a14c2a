package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"breadcrumb prefixed title", "Shop / Grocery / Canned Goods / Canned Vegetables / Hunts Tomatoes Diced 8 14.5", "canned goods>canned vegetables>tomatoes diced"},
		{"store stopword and descriptor", "Walmart > Food > Snacks > Chips > Lays Classic Potato Chips 8 oz", "snacks>chips>lays potato chips"},
		{"plain title with size", "Hunt's Tomato Sauce 15 oz", "tomato sauce"},
		{"multipack", "Coca-Cola Soda 12 x 355ml", "coca cola soda"},
		{"count pack", "Sparkling Water 12 Pack", "sparkling water"},
		{"brand only keeps nothing", "Great Value", ""},
		{"single separator is not a trail", "Salt & Pepper / Grinder", "salt pepper grinder"},
		{"all stop segments keep final", "Shop > Grocery > Milk", "milk"},
		{"blank", "   ", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Title(tc.in))
		})
	}
}

func TestTitleIsDeterministic(t *testing.T) {
	in := "Home / Pantry / Pasta & Grains / Barilla Spaghetti No. 5 - 1 lb"
	first := Title(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Title(in))
	}
	assert.Equal(t, "pantry>pasta grains>barilla spaghetti no", first)
}

func TestBreadcrumb(t *testing.T) {
	assert.Equal(t, "dairy>milk>whole milk", Breadcrumb("Grocery > Dairy > Milk > Whole Milk"))
	assert.Equal(t, "canned goods", Breadcrumb("Canned Goods"))
	assert.Equal(t, "", Breadcrumb(""))
}

func TestSegments(t *testing.T) {
	assert.Nil(t, Segments(" "))
	assert.Equal(t, []string{"A", "B", "C"}, Segments("Shop/Home/X/A / B / C"))
	assert.Equal(t, []string{"Only"}, Segments("Only"))
}
