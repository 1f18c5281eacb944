// Package mediacache stores downloaded media blobs (videos, PDFs, other
// binary attachments) on disk, sharded by URL hash the way the teacher's
// logo cache shards image files, with an LRU+TTL eviction policy and a
// configurable verification mode for entries reused across runs.
package mediacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmylchreest/summarize/internal/storage"
)

// VerifyMode controls how a cache hit is validated before reuse.
type VerifyMode string

const (
	// VerifyNone trusts the cache entry without re-checking the source.
	VerifyNone VerifyMode = "none"
	// VerifySize compares the file size recorded at Store time against the
	// caller's expected size. Nothing is re-fetched or re-read from disk, and
	// a mismatch is reported as a miss without removing the entry.
	VerifySize VerifyMode = "size"
	// VerifyHash compares the SHA-256 recorded at Store time against the
	// caller's expected hash. The blob is not re-hashed, and a mismatch is
	// reported as a miss without removing the entry.
	VerifyHash VerifyMode = "hash"
)

// Metadata is the JSON sidecar stored next to each cached blob.
type Metadata struct {
	URLHash      string    `json:"url_hash"`
	SourceURL    string    `json:"source_url"`
	ContentType  string    `json:"content_type,omitempty"`
	FileSize     int64     `json:"file_size"`
	SHA256       string    `json:"sha256,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (m *Metadata) relativePath(ext string) string {
	shard := m.URLHash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(shard, m.URLHash+ext)
}

func (m *Metadata) relativeMetaPath() string {
	shard := m.URLHash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(shard, m.URLHash+".json")
}

// Cache is the media blob cache rooted at a configured directory.
type Cache struct {
	sandbox  *storage.Sandbox
	ttl      time.Duration
	maxBytes int64
}

// NewCache creates a Cache rooted at baseDir. maxBytes bounds total cache
// size for LRU eviction; zero disables the bound.
func NewCache(baseDir string, ttl time.Duration, maxBytes int64) (*Cache, error) {
	sandbox, err := storage.NewSandbox(baseDir)
	if err != nil {
		return nil, fmt.Errorf("creating media cache sandbox: %w", err)
	}
	return &Cache{sandbox: sandbox, ttl: ttl, maxBytes: maxBytes}, nil
}

// URLHash returns the cache key for a source URL.
func URLHash(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the metadata for sourceURL if a live (non-expired) entry
// exists, applying mode's verification against want (expected size or hash,
// as appropriate; empty strings/zero skip that check). A cache miss is
// reported as (nil, nil), never an error.
func (c *Cache) Lookup(ctx context.Context, sourceURL string, mode VerifyMode, wantSize int64, wantHash string) (*Metadata, error) {
	hash := URLHash(sourceURL)
	meta, err := c.readMeta(hash)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}
	if time.Now().After(meta.ExpiresAt) {
		return nil, nil
	}

	switch mode {
	case VerifySize:
		if wantSize > 0 && meta.FileSize != wantSize {
			return nil, nil
		}
	case VerifyHash:
		if wantHash != "" && meta.SHA256 != wantHash {
			return nil, nil
		}
	case VerifyNone, "":
		// trust the entry as-is
	}

	meta.LastAccessAt = time.Now()
	if err := c.writeMeta(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Store writes a blob from r under sourceURL's key and records its
// metadata. ext should include the leading dot (e.g. ".mp4").
func (c *Cache) Store(ctx context.Context, sourceURL, contentType, ext string, r io.Reader) (*Metadata, error) {
	meta := &Metadata{
		URLHash:      URLHash(sourceURL),
		SourceURL:    sourceURL,
		ContentType:  contentType,
		CreatedAt:    time.Now(),
		LastAccessAt: time.Now(),
		ExpiresAt:    time.Now().Add(c.ttl),
	}

	h := sha256.New()
	path := meta.relativePath(ext)
	if err := c.sandbox.AtomicWriteReader(path, io.TeeReader(r, h)); err != nil {
		return nil, fmt.Errorf("writing media blob: %w", err)
	}
	size, err := c.sandbox.Size(path)
	if err != nil {
		return nil, fmt.Errorf("statting media blob: %w", err)
	}
	meta.FileSize = size
	meta.SHA256 = hex.EncodeToString(h.Sum(nil))

	if err := c.writeMeta(meta); err != nil {
		return nil, err
	}
	if c.maxBytes > 0 {
		if err := c.evictToFit(ctx); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// Open opens the cached blob for meta for reading.
func (c *Cache) Open(meta *Metadata, ext string) (*os.File, error) {
	return c.sandbox.OpenFile(meta.relativePath(ext), os.O_RDONLY, 0)
}

// AbsolutePath returns the absolute filesystem path to meta's blob.
func (c *Cache) AbsolutePath(meta *Metadata, ext string) (string, error) {
	return c.sandbox.ResolvePath(meta.relativePath(ext))
}

func (c *Cache) readMeta(hash string) (*Metadata, error) {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	metaPath := filepath.Join(shard, hash+".json")
	exists, err := c.sandbox.Exists(metaPath)
	if err != nil {
		return nil, fmt.Errorf("checking media cache metadata: %w", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := c.sandbox.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("reading media cache metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling media cache metadata: %w", err)
	}
	return &meta, nil
}

func (c *Cache) writeMeta(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling media cache metadata: %w", err)
	}
	if err := c.sandbox.AtomicWrite(meta.relativeMetaPath(), data); err != nil {
		return fmt.Errorf("writing media cache metadata: %w", err)
	}
	return nil
}

// allMeta scans the cache directory for every metadata sidecar.
func (c *Cache) allMeta() ([]*Metadata, error) {
	var metas []*Metadata
	err := c.sandbox.Walk("", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := c.sandbox.ReadFile(path)
		if err != nil {
			return nil
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil
		}
		metas = append(metas, &meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking media cache: %w", err)
	}
	return metas, nil
}

// evictToFit removes the least-recently-accessed entries until total cache
// size is at or under maxBytes.
func (c *Cache) evictToFit(ctx context.Context) error {
	metas, err := c.allMeta()
	if err != nil {
		return err
	}

	var total int64
	for _, m := range metas {
		total += m.FileSize
	}
	if total <= c.maxBytes {
		return nil
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].LastAccessAt.Before(metas[j].LastAccessAt) })

	for _, m := range metas {
		if total <= c.maxBytes {
			break
		}
		if err := c.evict(m); err != nil {
			continue
		}
		total -= m.FileSize
	}
	return nil
}

func (c *Cache) evict(meta *Metadata) error {
	shard := meta.URLHash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	entries, err := c.sandbox.List(shard)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			continue
		}
		if base := e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]; base == meta.URLHash {
			if err := c.sandbox.Remove(filepath.Join(shard, e.Name())); err != nil {
				return err
			}
		}
	}
	return c.sandbox.Remove(meta.relativeMetaPath())
}

// Stats reports the number of entries and their combined size on disk.
type Stats struct {
	Entries   int
	TotalSize int64
}

// Stats scans the cache and reports its current size, for --cache-stats.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	metas, err := c.allMeta()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Entries: len(metas)}
	for _, m := range metas {
		stats.TotalSize += m.FileSize
	}
	return stats, nil
}

// Clear evicts every entry, for --clear-cache.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	metas, err := c.allMeta()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range metas {
		if err := c.evict(m); err == nil {
			n++
		}
	}
	return n, nil
}

// PruneExpired removes every entry whose TTL has elapsed.
func (c *Cache) PruneExpired(ctx context.Context) (int, error) {
	metas, err := c.allMeta()
	if err != nil {
		return 0, err
	}
	n := 0
	now := time.Now()
	for _, m := range metas {
		if now.After(m.ExpiresAt) {
			if err := c.evict(m); err == nil {
				n++
			}
		}
	}
	return n, nil
}
