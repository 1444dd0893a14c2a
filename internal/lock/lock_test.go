package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.nowFn = func() time.Time { return now }

	token, ok, err := l.TryLock(ctx, "category_tree", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "category_tree", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, l.Release(ctx, "category_tree", "someone-else"))
	_, ok, _ = l.TryLock(ctx, "category_tree", time.Minute)
	assert.False(t, ok, "release with a foreign token is ignored")

	require.NoError(t, l.Release(ctx, "category_tree", token))
	_, ok, _ = l.TryLock(ctx, "category_tree", time.Minute)
	assert.True(t, ok)
}

func TestLocalLockerExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.nowFn = func() time.Time { return now }

	_, ok, _ := l.TryLock(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.TryLock(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestLockValidation(t *testing.T) {
	l := NewLocalLocker()
	_, _, err := l.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	var nilLocker *RedisLocker
	_, _, err = nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, nilLocker.Release(context.Background(), "k", "t"))
	assert.Nil(t, NewRedisLocker(nil))
}
