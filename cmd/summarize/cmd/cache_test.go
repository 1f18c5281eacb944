package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/summarize/internal/config"
	"github.com/jmylchreest/summarize/internal/database"
	"github.com/jmylchreest/summarize/internal/database/migrations"
	"github.com/jmylchreest/summarize/internal/mediacache"
	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/internal/runner"
)

func newTestApp(t *testing.T) *app {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger, nil)
	require.NoError(t, err)

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.All())
	require.NoError(t, migrator.Up(context.Background()))

	media, err := mediacache.NewCache(t.TempDir(), time.Hour, 0)
	require.NoError(t, err)

	return &app{
		cfg: &config.Config{},
		db:  db,
		deps: runner.Dependencies{
			Runs:        metacache.NewRunRepository(db.DB),
			Transcripts: metacache.NewTranscriptCache(db.DB, time.Hour),
			Contents:    metacache.NewContentCache(db.DB, time.Hour),
			Summaries:   metacache.NewSummaryCache(db.DB, time.Hour),
			Media:       media,
			Logger:      logger,
		},
		logger: logger,
	}
}

func TestPrintCacheStats_EmptyCaches(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, printCacheStats(context.Background(), a))
}

func TestClearCaches_RemovesEverything(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.deps.Transcripts.Put(ctx, "https://example.com/a", "website", "some transcript text"))

	var before int64
	a.db.DB.WithContext(ctx).Model(&models.TranscriptCacheEntry{}).Count(&before)
	require.Equal(t, int64(1), before)

	require.NoError(t, clearCaches(ctx, a))

	var after int64
	a.db.DB.WithContext(ctx).Model(&models.TranscriptCacheEntry{}).Count(&after)
	require.Equal(t, int64(0), after)
}
