// Package startup provides utilities for application startup tasks.
package startup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/models"
)

// TempDirPrefix is the directory-name prefix that CleanupOrphanedTempDirs
// treats as a summarize temp directory and removes.
const TempDirPrefix = "summarize-"

// CleanupOrphanedTempDirs removes orphaned temporary directories that are older
// than the specified maxAge. It looks for directories matching the pattern
// "summarize-*" in the specified base directory.
//
// Returns the number of directories removed and any error encountered.
func CleanupOrphanedTempDirs(logger *slog.Logger, baseDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		logger.Debug("base directory does not exist, skipping cleanup",
			"path", baseDir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", baseDir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), TempDirPrefix) {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get directory info",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent temp directory",
				"path", dirPath,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			logger.Warn("failed to remove orphaned temp directory",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned temp directory",
			"path", dirPath,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}

// DefaultCleanupAge is the default maximum age for orphaned temp directories (1 hour).
const DefaultCleanupAge = 1 * time.Hour

// CleanupSystemTempDirs cleans up orphaned summarize temp directories from the
// system temp directory using the default cleanup age.
func CleanupSystemTempDirs(logger *slog.Logger) (int, error) {
	return CleanupOrphanedTempDirs(logger, os.TempDir(), DefaultCleanupAge)
}

// RecoverStaleRuns resets any runs stuck in "extracting", "slides", or
// "summarizing" status back to "failed". This handles the case where the
// daemon crashed or was restarted mid-run: without this recovery, a run
// would stay permanently stuck in a non-terminal status since the
// in-memory SSE bus driving it is gone after restart.
//
// Returns the number of runs recovered and any error encountered.
func RecoverStaleRuns(ctx context.Context, logger *slog.Logger, runs *metacache.RunRepository) (int, error) {
	recent, err := runs.ListRecent(ctx, 0)
	if err != nil {
		logger.Error("failed to list runs for stale status recovery",
			"error", err,
		)
		return 0, err
	}

	var recovered int
	for _, run := range recent {
		switch run.Status {
		case models.RunStatusExtracting, models.RunStatusSlides, models.RunStatusSummarizing:
		default:
			continue
		}

		logger.Warn("recovering stale run status",
			"run_id", run.ID.String(),
			"status", run.Status,
		)

		if err := runs.UpdateStatus(ctx, run.ID, models.RunStatusFailed, "interrupted", "interrupted by daemon restart"); err != nil {
			logger.Error("failed to recover stale run status",
				"run_id", run.ID.String(),
				"error", err,
			)
			continue
		}

		recovered++
	}

	return recovered, nil
}
