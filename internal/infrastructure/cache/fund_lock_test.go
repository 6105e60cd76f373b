package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFundLock_ExcludesSecondHolder(t *testing.T) {
	lock := NewMemoryFundLock()
	ctx := context.Background()
	fundID := uuid.New()

	token, ok, err := lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = lock.Acquire(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other funds are independent")

	require.NoError(t, lock.Release(ctx, fundID, token))
	_, ok, err = lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryFundLock_StaleTokenCannotRelease(t *testing.T) {
	lock := NewMemoryFundLock()
	ctx := context.Background()
	fundID := uuid.New()

	_, ok, err := lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, fundID, "someone-else"))

	_, ok, err = lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryFundLock_ExpiredLeaseIsReplaced(t *testing.T) {
	lock := NewMemoryFundLock()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }
	ctx := context.Background()
	fundID := uuid.New()

	first, ok, err := lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	second, ok, err := lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	// the expired holder must not free the new lease
	require.NoError(t, lock.Release(ctx, fundID, first))
	_, ok, err = lock.Acquire(ctx, fundID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
