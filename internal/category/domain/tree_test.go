package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func sampleTree() []Category {
	return []Category{
		{ID: 5, ParentID: ptr(3), Title: "Diced Tomatoes", Slug: "diced-tomatoes"},
		{ID: 1, Title: "Grocery", Slug: "grocery"},
		{ID: 3, ParentID: ptr(2), Title: "Canned Vegetables", Slug: "canned-vegetables"},
		{ID: 2, ParentID: ptr(1), Title: "Pantry", Slug: "pantry", SortOrder: 2},
		{ID: 4, ParentID: ptr(1), Title: "Dairy", Slug: "dairy", SortOrder: 1},
	}
}

func TestRebuild(t *testing.T) {
	in := sampleTree()
	out, err := Rebuild(in)
	require.NoError(t, err)
	require.Len(t, out, 5)

	ids := make([]int64, 0, len(out))
	for _, c := range out {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{1, 4, 2, 3, 5}, ids, "siblings follow sort order")

	byID := map[int64]Category{}
	for _, c := range out {
		byID[c.ID] = c
	}
	assert.Equal(t, "grocery/pantry/canned-vegetables/diced-tomatoes", byID[5].Path)
	assert.Equal(t, 3, byID[5].Depth)
	assert.Equal(t, KindProduct, byID[5].Kind)
	assert.Equal(t, KindSubcategory, byID[3].Kind)
	assert.Equal(t, KindRoot, byID[1].Kind)

	assert.Equal(t, 1, byID[1].Lft)
	assert.Equal(t, 10, byID[1].Rgt)
	for _, c := range out {
		assert.Less(t, c.Lft, c.Rgt)
		if c.ParentID != nil {
			parent := byID[*c.ParentID]
			assert.Greater(t, c.Lft, parent.Lft)
			assert.Less(t, c.Rgt, parent.Rgt)
		}
	}

	assert.Empty(t, in[0].Path, "input is left untouched")
}

func TestRebuildDetectsCycle(t *testing.T) {
	nodes := []Category{
		{ID: 1, Title: "Root", Slug: "root"},
		{ID: 2, ParentID: ptr(3), Title: "A", Slug: "a"},
		{ID: 3, ParentID: ptr(2), Title: "B", Slug: "b"},
	}
	_, err := Rebuild(nodes)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestRebuildPromotesOrphans(t *testing.T) {
	out, err := Rebuild([]Category{{ID: 7, ParentID: ptr(99), Title: "Orphan", Slug: "orphan"}})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].Depth)
	assert.Equal(t, "orphan", out[0].Path)
}

func TestLineage(t *testing.T) {
	out, err := Rebuild(sampleTree())
	require.NoError(t, err)

	byID := map[int64]Category{}
	for _, c := range out {
		byID[c.ID] = c
	}
	lineage := Lineage{byID[1], byID[2], byID[3], byID[5]}

	assert.Equal(t, []string{"Grocery", "Pantry", "Canned Vegetables", "Diced Tomatoes"}, slices.Collect(lineage.Titles()))
	assert.Equal(t, []string{"Pantry", "Canned Vegetables", "Diced Tomatoes"}, slices.Collect(lineage.BreadcrumbTitles()))
	assert.Equal(t, "Pantry > Canned Vegetables > Diced Tomatoes", lineage.Breadcrumb(" > "))

	// restartable
	assert.Equal(t, slices.Collect(lineage.Titles()), slices.Collect(lineage.Titles()))

	var first []string
	for title := range lineage.Titles() {
		first = append(first, title)
		break
	}
	assert.Equal(t, []string{"Grocery"}, first)

	assert.Equal(t, int64(5), lineage.Self().ID)
	assert.Nil(t, Lineage(nil).Self())
}

func TestParentCandidates(t *testing.T) {
	out, err := Rebuild(sampleTree())
	require.NoError(t, err)

	candidates := ParentCandidates(out)
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"Grocery", "-- Dairy", "-- Pantry", "-- -- Canned Vegetables"}, labels)
}

func TestKindForDepth(t *testing.T) {
	assert.Equal(t, KindRoot, KindForDepth(0))
	assert.Equal(t, KindCategory, KindForDepth(1))
	assert.Equal(t, KindSubcategory, KindForDepth(2))
	assert.Equal(t, KindProduct, KindForDepth(3))
	assert.Equal(t, KindProduct, KindForDepth(7))
}

func TestNormalizeSynonyms(t *testing.T) {
	got := NormalizeSynonyms([]string{" Diced  Tomato ", "", "diced tomato", "Tomato Cubes", "   "})
	assert.Equal(t, []string{"Diced Tomato", "Tomato Cubes"}, got)
}

func TestLastSegment(t *testing.T) {
	c := Category{Path: "grocery/pantry/canned-vegetables"}
	assert.Equal(t, "canned-vegetables", c.LastSegment())
	assert.Equal(t, "grocery", (&Category{Path: "grocery"}).LastSegment())
}
