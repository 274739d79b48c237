package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(0)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(999 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Millisecond)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Bounded(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", nil, time.Minute))
	require.NoError(t, m.Set(ctx, "b", nil, time.Minute))
	require.NoError(t, m.Set(ctx, "c", nil, time.Minute))
	assert.Equal(t, 2, m.Len())

	_, err := m.Get(ctx, "c")
	assert.NoError(t, err, "the newest entry is always kept")
}

func TestMemory_EvictsExpiredFirst(t *testing.T) {
	m := NewMemory(2)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", nil, time.Second))
	require.NoError(t, m.Set(ctx, "long", nil, time.Hour))
	now = now.Add(2 * time.Second)
	require.NoError(t, m.Set(ctx, "new", nil, time.Hour))

	_, err := m.Get(ctx, "long")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "new")
	assert.NoError(t, err)
}
