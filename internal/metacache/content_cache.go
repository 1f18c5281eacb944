package metacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmylchreest/summarize/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HashKey returns the hex sha256 of parts joined by a NUL separator, the
// cache key format shared by all three tiers below.
func HashKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TranscriptCache stores extracted transcripts keyed by source URL hash.
type TranscriptCache struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewTranscriptCache returns a TranscriptCache with the given entry TTL.
func NewTranscriptCache(db *gorm.DB, ttl time.Duration) *TranscriptCache {
	return &TranscriptCache{db: db, ttl: ttl}
}

// Get returns the cached transcript for sourceURL, or nil if absent or
// expired.
func (c *TranscriptCache) Get(ctx context.Context, sourceURL string) (*models.TranscriptCacheEntry, error) {
	hash := HashKey(sourceURL)
	var entry models.TranscriptCacheEntry
	err := c.db.WithContext(ctx).Where("url_hash = ? AND expires_at > ?", hash, time.Now()).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transcript cache entry: %w", err)
	}
	return &entry, nil
}

// Put upserts a transcript cache entry, resetting its expiry.
func (c *TranscriptCache) Put(ctx context.Context, sourceURL, kind, text string) error {
	entry := models.TranscriptCacheEntry{
		URLHash:   HashKey(sourceURL),
		SourceURL: sourceURL,
		Kind:      kind,
		Text:      text,
		ExpiresAt: time.Now().Add(c.ttl),
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "kind", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("putting transcript cache entry: %w", err)
	}
	return nil
}

// ContentCache stores normalized content (e.g. rendered markdown) keyed by a
// hash of its inputs.
type ContentCache struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewContentCache returns a ContentCache with the given entry TTL.
func NewContentCache(db *gorm.DB, ttl time.Duration) *ContentCache {
	return &ContentCache{db: db, ttl: ttl}
}

// Get returns the cached content for key, or nil if absent or expired.
func (c *ContentCache) Get(ctx context.Context, key string) (*models.ContentCacheEntry, error) {
	var entry models.ContentCacheEntry
	err := c.db.WithContext(ctx).Where("content_hash = ? AND expires_at > ?", key, time.Now()).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting content cache entry: %w", err)
	}
	return &entry, nil
}

// Put upserts a content cache entry under key, resetting its expiry.
func (c *ContentCache) Put(ctx context.Context, key, text string) error {
	entry := models.ContentCacheEntry{ContentHash: key, Text: text, ExpiresAt: time.Now().Add(c.ttl)}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("putting content cache entry: %w", err)
	}
	return nil
}

// SummaryCache stores finished summaries keyed by a hash of every input that
// can change the output (transcript hash, model ID, length, language).
type SummaryCache struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSummaryCache returns a SummaryCache with the given entry TTL.
func NewSummaryCache(db *gorm.DB, ttl time.Duration) *SummaryCache {
	return &SummaryCache{db: db, ttl: ttl}
}

// Get returns the cached summary for key, or nil if absent or expired.
func (c *SummaryCache) Get(ctx context.Context, key string) (*models.SummaryCacheEntry, error) {
	var entry models.SummaryCacheEntry
	err := c.db.WithContext(ctx).Where("cache_key = ? AND expires_at > ?", key, time.Now()).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary cache entry: %w", err)
	}
	return &entry, nil
}

// Put upserts a summary cache entry under key, resetting its expiry.
func (c *SummaryCache) Put(ctx context.Context, key string, runID models.ULID, text string) error {
	entry := models.SummaryCacheEntry{CacheKey: key, RunID: runID, Text: text, ExpiresAt: time.Now().Add(c.ttl)}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "run_id", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("putting summary cache entry: %w", err)
	}
	return nil
}

// Clear deletes every row across all three cache tiers, used by the CLI's
// --clear-cache flag.
func Clear(ctx context.Context, db *gorm.DB) error {
	for _, model := range []any{&models.TranscriptCacheEntry{}, &models.ContentCacheEntry{}, &models.SummaryCacheEntry{}} {
		if err := db.WithContext(ctx).Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}
	return nil
}

// Stats reports row counts across all three cache tiers, used by the CLI's
// --cache-stats flag.
type Stats struct {
	Transcripts int64
	Contents    int64
	Summaries   int64
}

// GatherStats counts rows in each cache table.
func GatherStats(ctx context.Context, db *gorm.DB) (Stats, error) {
	var s Stats
	if err := db.WithContext(ctx).Model(&models.TranscriptCacheEntry{}).Count(&s.Transcripts).Error; err != nil {
		return s, fmt.Errorf("counting transcript cache: %w", err)
	}
	if err := db.WithContext(ctx).Model(&models.ContentCacheEntry{}).Count(&s.Contents).Error; err != nil {
		return s, fmt.Errorf("counting content cache: %w", err)
	}
	if err := db.WithContext(ctx).Model(&models.SummaryCacheEntry{}).Count(&s.Summaries).Error; err != nil {
		return s, fmt.Errorf("counting summary cache: %w", err)
	}
	return s, nil
}
