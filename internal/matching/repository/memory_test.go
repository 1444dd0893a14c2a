package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/matching/domain"
	"github.com/smallbiznis/pricewise/pkg/db/dbtest"
)

type testItem struct {
	ID              int64 `gorm:"primaryKey;autoIncrement:false"`
	StoreID         *int64
	Title           string
	NormalizedTitle string
	Breadcrumb      string
	CategoryID      *int64
	Approved        bool
}

func (testItem) TableName() string { return itemsTable }

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T) *gorm.DB {
	t.Helper()
	conn := dbtest.Open(t, &categorydomain.Category{}, &testItem{})

	categories := []categorydomain.Category{
		{ID: 1, Title: "Grocery", Slug: "grocery", Kind: categorydomain.KindRoot, Path: "grocery", Depth: 0, Lft: 1, Rgt: 10},
		{ID: 2, ParentID: ptr(int64(1)), Title: "Pantry", Slug: "pantry", Kind: categorydomain.KindCategory, Path: "grocery/pantry", Depth: 1, Lft: 2, Rgt: 9},
		{ID: 3, ParentID: ptr(int64(2)), Title: "Canned Vegetables", Slug: "canned-vegetables", Kind: categorydomain.KindSubcategory, Path: "grocery/pantry/canned-vegetables", Depth: 2, Lft: 3, Rgt: 8},
		{ID: 4, ParentID: ptr(int64(3)), Title: "Diced Tomatoes", Slug: "diced-tomatoes", Kind: categorydomain.KindProduct, Path: "grocery/pantry/canned-vegetables/diced-tomatoes", Depth: 3, Lft: 4, Rgt: 5,
			Synonyms: datatypes.JSONSlice[string]{"tomatoes diced"}},
		{ID: 5, ParentID: ptr(int64(3)), Title: "Sweet Corn", Slug: "sweet-corn", Kind: categorydomain.KindProduct, Path: "grocery/pantry/canned-vegetables/sweet-corn", Depth: 3, Lft: 6, Rgt: 7},
	}
	require.NoError(t, conn.Create(&categories).Error)

	items := []testItem{
		{ID: 10, StoreID: ptr(int64(7)), Title: "Hunt's Diced Tomatoes", NormalizedTitle: "diced tomatoes", Breadcrumb: "Pantry > Canned", CategoryID: ptr(int64(4)), Approved: true},
		{ID: 11, StoreID: ptr(int64(8)), Title: "Store Diced Tomatoes", NormalizedTitle: "diced tomatoes", Breadcrumb: "Canned", CategoryID: ptr(int64(4)), Approved: true},
		{ID: 12, Title: "Golden Sweet Corn", NormalizedTitle: "golden sweet corn", CategoryID: ptr(int64(5)), Approved: true},
		{ID: 13, Title: "Unreviewed Diced Tomatoes", NormalizedTitle: "diced tomatoes", CategoryID: ptr(int64(5)), Approved: false},
		{ID: 14, Title: "Uncategorized Diced Tomatoes", NormalizedTitle: "diced tomatoes", Approved: true},
	}
	require.NoError(t, conn.Create(&items).Error)
	return conn
}

func TestMemorySearcherPeers(t *testing.T) {
	s := NewMemorySearcher(seed(t))
	ctx := context.Background()

	got, err := s.SearchPeers(ctx, domain.PeerQuery{Text: "diced tomatoes", Threshold: 0.5, Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 2, "unapproved and uncategorized items are not peers")
	assert.Equal(t, int64(10), got[0].ItemID)
	assert.Equal(t, int64(11), got[1].ItemID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	got, err = s.SearchPeers(ctx, domain.PeerQuery{
		Text:       "diced tomatoes",
		StoreID:    ptr(int64(8)),
		Breadcrumb: "Canned",
		Threshold:  0.5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ItemID)

	got, err = s.SearchPeers(ctx, domain.PeerQuery{Text: "diced tomatoes", ExcludeItemID: 10, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ItemID)

	got, err = s.SearchPeers(ctx, domain.PeerQuery{Text: "laundry detergent", Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemorySearcherCategoriesUsesBestField(t *testing.T) {
	s := NewMemorySearcher(seed(t))
	ctx := context.Background()

	got, err := s.SearchCategories(ctx, domain.CategoryQuery{Text: "tomatoes diced", Threshold: 0.3, Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(4), got[0].CategoryID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9, "synonym matches exactly")

	got, err = s.SearchCategories(ctx, domain.CategoryQuery{Text: "sweet corn", Threshold: 0.3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].CategoryID)

	got, err = s.SearchCategories(ctx, domain.CategoryQuery{Text: "pantry", Threshold: 0.9})
	require.NoError(t, err)
	assert.Empty(t, got, "only leaf categories are candidates")

	got, err = s.SearchCategories(ctx, domain.CategoryQuery{Text: "  ", Threshold: 0.1})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCategoryScoreExprQuotesColumns(t *testing.T) {
	assert.Contains(t, categoryScoreExpr, `similarity("title", @q)`)
	assert.Contains(t, categoryScoreExpr, `jsonb_array_elements_text(COALESCE("synonyms", '[]'::jsonb))`)
	assert.Contains(t, categoryScoreExpr, "GREATEST(")
}
