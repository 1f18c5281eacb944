package metacache

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/summarize/internal/database/migrations"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	migrator := migrations.NewMigrator(db, nil)
	migrator.RegisterAll(migrations.All())
	require.NoError(t, migrator.Up(context.Background()))
	return db
}

func TestHashKey_DeterministicAndOrderSensitive(t *testing.T) {
	a := HashKey("https://example.com", "openai/gpt-5")
	b := HashKey("https://example.com", "openai/gpt-5")
	c := HashKey("openai/gpt-5", "https://example.com")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTranscriptCache_PutThenGet(t *testing.T) {
	db := setupTestDB(t)
	cache := NewTranscriptCache(db, time.Hour)
	ctx := context.Background()

	entry, err := cache.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, cache.Put(ctx, "https://example.com/a", "website", "hello world"))

	entry, err = cache.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "hello world", entry.Text)
}

func TestTranscriptCache_ExpiredEntryIsAMiss(t *testing.T) {
	db := setupTestDB(t)
	cache := NewTranscriptCache(db, -time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "https://example.com/a", "website", "stale"))
	entry, err := cache.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSummaryCache_PutThenGet(t *testing.T) {
	db := setupTestDB(t)
	cache := NewSummaryCache(db, time.Hour)
	ctx := context.Background()

	key := HashKey("transcripthash", "openai/gpt-5", "short", "en")
	require.NoError(t, cache.Put(ctx, key, models.NewULID(), "a short summary"))

	entry, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "a short summary", entry.Text)
}

func TestClear_RemovesAllTiers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewTranscriptCache(db, time.Hour).Put(ctx, "u", "website", "t"))
	require.NoError(t, NewContentCache(db, time.Hour).Put(ctx, "k", "c"))
	require.NoError(t, NewSummaryCache(db, time.Hour).Put(ctx, "sk", models.NewULID(), "s"))

	stats, err := GatherStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, Stats{Transcripts: 1, Contents: 1, Summaries: 1}, stats)

	require.NoError(t, Clear(ctx, db))

	stats, err = GatherStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRunRepository_CreateCompleteAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	run := &models.Run{SourceURL: "https://example.com", ModelID: "openai/gpt-5", Status: models.RunStatusPending}
	require.NoError(t, repo.Create(ctx, run))
	assert.False(t, run.ID.IsZero())

	prompt := int64(100)
	cost := 0.002
	require.NoError(t, repo.Complete(ctx, run.ID, "summary text", &prompt, nil, &cost))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RunStatusDone, got.Status)
	assert.Equal(t, "summary text", got.SummaryText)
	require.NotNil(t, got.PromptTokens)
	assert.Equal(t, int64(100), *got.PromptTokens)
	assert.Nil(t, got.CompletionTokens)

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
