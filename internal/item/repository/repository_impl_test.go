package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/pricewise/internal/item/domain"
	"github.com/smallbiznis/pricewise/pkg/db/dbtest"
)

func ptr[T any](v T) *T { return &v }

func TestClearCategories(t *testing.T) {
	db := dbtest.Open(t, &domain.Item{})
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	items := []domain.Item{
		{ID: 1, Title: "a", Price: decimal.NewFromInt(1), CategoryID: ptr(int64(10)), Approved: true, MatchScore: ptr(0.9), MatchStrategy: "peer_item", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Title: "b", Price: decimal.NewFromInt(1), CategoryID: ptr(int64(11)), Approved: true, CreatedAt: now, UpdatedAt: now},
		{ID: 3, Title: "c", Price: decimal.NewFromInt(1), CategoryID: ptr(int64(12)), Approved: true, CreatedAt: now, UpdatedAt: now},
		{ID: 4, Title: "d", Price: decimal.NewFromInt(1), CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, db.Create(&items).Error)

	cleared, err := repo.ClearCategories(ctx, db, []int64{10, 11, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	first, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	assert.Nil(t, first.CategoryID)
	assert.False(t, first.Approved)
	assert.Nil(t, first.MatchScore)
	assert.Empty(t, first.MatchStrategy)

	untouched, err := repo.FindByID(ctx, db, 3)
	require.NoError(t, err)
	assert.True(t, untouched.Approved)

	cleared, err = repo.ClearCategories(ctx, db, nil)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestListPendingAndApproved(t *testing.T) {
	db := dbtest.Open(t, &domain.Item{})
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := int64(1); i <= 5; i++ {
		item := domain.Item{ID: i, Title: "item", Price: decimal.NewFromInt(2), CreatedAt: now, UpdatedAt: now}
		if i%2 == 0 {
			item.NormalizedAt = &now
			item.CategoryID = ptr(int64(7))
			item.Approved = true
		}
		require.NoError(t, repo.Create(ctx, db, &item))
	}

	pending, err := repo.ListPendingIDs(ctx, db, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, pending)

	pending, err = repo.ListPendingIDs(ctx, db, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, pending)

	approved, err := repo.ListApproved(ctx, db, 2, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, int64(4), approved[0].ID)

	missing, err := repo.FindByID(ctx, db, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
