package migrations

import (
	"github.com/jmylchreest/summarize/internal/models"
	"gorm.io/gorm"
)

// Migration001InitialSchema creates the run and cache tables.
var Migration001InitialSchema = Migration{
	Version:     "001",
	Description: "create runs, transcript/content/summary caches, slide manifests",
	Up: func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&models.Run{},
			&models.TranscriptCacheEntry{},
			&models.ContentCacheEntry{},
			&models.SummaryCacheEntry{},
			&models.SlideManifest{},
		)
	},
	Down: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(
			&models.Run{},
			&models.TranscriptCacheEntry{},
			&models.ContentCacheEntry{},
			&models.SummaryCacheEntry{},
			&models.SlideManifest{},
		)
	},
}

// All returns every registered migration, in definition order (Migrator
// sorts by Version before applying, so order here is cosmetic).
func All() []Migration {
	return []Migration{
		Migration001InitialSchema,
	}
}
