package mediacache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreThenLookup_VerifyNone(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)
	ctx := context.Background()

	meta, err := cache.Store(ctx, "https://example.com/video.mp4", "video/mp4", ".mp4", strings.NewReader("fake video bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, len("fake video bytes"), meta.FileSize)

	got, err := cache.Lookup(ctx, "https://example.com/video.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, meta.SHA256, got.SHA256)
}

func TestLookup_MissReturnsNilNil(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)

	got, err := cache.Lookup(context.Background(), "https://example.com/missing.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookup_ExpiredEntryIsAMiss(t *testing.T) {
	cache, err := NewCache(t.TempDir(), -time.Hour, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Store(ctx, "https://example.com/video.mp4", "video/mp4", ".mp4", strings.NewReader("x"))
	require.NoError(t, err)

	got, err := cache.Lookup(ctx, "https://example.com/video.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookup_VerifySizeRejectsMismatch(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Store(ctx, "https://example.com/video.mp4", "video/mp4", ".mp4", strings.NewReader("twelve bytes"))
	require.NoError(t, err)

	got, err := cache.Lookup(ctx, "https://example.com/video.mp4", VerifySize, 999, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = cache.Lookup(ctx, "https://example.com/video.mp4", VerifySize, int64(len("twelve bytes")), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLookup_VerifyHashRejectsMismatch(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)
	ctx := context.Background()

	meta, err := cache.Store(ctx, "https://example.com/video.mp4", "video/mp4", ".mp4", strings.NewReader("data"))
	require.NoError(t, err)

	got, err := cache.Lookup(ctx, "https://example.com/video.mp4", VerifyHash, 0, "wronghash")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = cache.Lookup(ctx, "https://example.com/video.mp4", VerifyHash, 0, meta.SHA256)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestPruneExpired_RemovesOnlyExpiredEntries(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Store(ctx, "https://example.com/keep.mp4", "video/mp4", ".mp4", strings.NewReader("keep"))
	require.NoError(t, err)

	expired, err := NewCache(cache.sandbox.BaseDir(), -time.Hour, 0)
	require.NoError(t, err)
	_, err = expired.Store(ctx, "https://example.com/gone.mp4", "video/mp4", ".mp4", strings.NewReader("gone"))
	require.NoError(t, err)

	n, err := cache.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := cache.Lookup(ctx, "https://example.com/keep.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = cache.Lookup(ctx, "https://example.com/gone.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvictToFit_RemovesLeastRecentlyAccessedFirst(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir, time.Hour, 10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Store(ctx, "https://example.com/a.mp4", "video/mp4", ".mp4", strings.NewReader("aaaaaaaa"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = cache.Store(ctx, "https://example.com/b.mp4", "video/mp4", ".mp4", strings.NewReader("bbbbbbbb"))
	require.NoError(t, err)

	gotA, err := cache.Lookup(ctx, "https://example.com/a.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.Nil(t, gotA, "eviction should have dropped the older entry once the cache exceeded maxBytes")

	gotB, err := cache.Lookup(ctx, "https://example.com/b.mp4", VerifyNone, 0, "")
	require.NoError(t, err)
	assert.NotNil(t, gotB)
}
