package cmd

import (
	"context"
	"fmt"

	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/pkg/format"
)

// printCacheStats answers --cache-stats: row counts for each metadata cache
// table plus the media blob cache's entry count and footprint on disk.
func printCacheStats(ctx context.Context, a *app) error {
	var transcripts, contents, summaries, slideManifests int64
	a.db.DB.WithContext(ctx).Model(&models.TranscriptCacheEntry{}).Count(&transcripts)
	a.db.DB.WithContext(ctx).Model(&models.ContentCacheEntry{}).Count(&contents)
	a.db.DB.WithContext(ctx).Model(&models.SummaryCacheEntry{}).Count(&summaries)
	a.db.DB.WithContext(ctx).Model(&models.SlideManifest{}).Count(&slideManifests)

	fmt.Printf("transcript cache:  %s entries\n", format.Number(transcripts))
	fmt.Printf("content cache:     %s entries\n", format.Number(contents))
	fmt.Printf("summary cache:     %s entries\n", format.Number(summaries))
	fmt.Printf("slide manifests:   %s entries\n", format.Number(slideManifests))

	mediaStats, err := a.deps.Media.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading media cache stats: %w", err)
	}
	fmt.Printf("media cache:       %s entries, %s on disk\n", format.Number(int64(mediaStats.Entries)), format.Bytes(mediaStats.TotalSize))
	return nil
}

// clearCaches answers --clear-cache: truncates every metadata cache table
// and evicts every media cache entry. Run history (models.Run) is left
// untouched; clearing caches is a performance reset, not a data-retention
// control.
func clearCaches(ctx context.Context, a *app) error {
	db := a.db.DB.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&models.TranscriptCacheEntry{}).Error; err != nil {
		return fmt.Errorf("clearing transcript cache: %w", err)
	}
	if err := db.Where("1 = 1").Delete(&models.ContentCacheEntry{}).Error; err != nil {
		return fmt.Errorf("clearing content cache: %w", err)
	}
	if err := db.Where("1 = 1").Delete(&models.SummaryCacheEntry{}).Error; err != nil {
		return fmt.Errorf("clearing summary cache: %w", err)
	}
	if err := db.Where("1 = 1").Delete(&models.SlideManifest{}).Error; err != nil {
		return fmt.Errorf("clearing slide manifests: %w", err)
	}

	n, err := a.deps.Media.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clearing media cache: %w", err)
	}

	fmt.Printf("cleared all caches (%d media entries removed)\n", n)
	return nil
}
