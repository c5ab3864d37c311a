package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_SetAndGet(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "key", []byte("value"), time.Minute))

	got, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestMemoryBackend_Get_MissingKey(t *testing.T) {
	b := NewMemoryBackend(10)
	_, ok, err := b.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Get_ExpiredEntryIsMiss(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "key", []byte("value"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Set_ZeroTTLNeverExpires(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "key", []byte("value"), 0))

	time.Sleep(10 * time.Millisecond)

	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBackend_Delete(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "key", []byte("value"), time.Minute))
	require.NoError(t, b.Delete(ctx, "key"))

	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Clear(t *testing.T) {
	b := NewMemoryBackend(10)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, b.Clear(ctx))

	_, ok, _ := b.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = b.Get(ctx, "b")
	assert.False(t, ok)
}

func TestMemoryBackend_EvictsOldestBeyondMaxEntries(t *testing.T) {
	b := NewMemoryBackend(2)
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, b.Set(ctx, "c", []byte("3"), time.Minute))

	_, ok, _ := b.Get(ctx, "a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok, _ = b.Get(ctx, "c")
	assert.True(t, ok)
}
