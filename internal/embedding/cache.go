package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DiskCache is a content-addressed embedding cache, one JSON file per entry.
// Entries are keyed by (model, text) so switching embedding models can never
// serve a vector generated under a different model. Total on-disk size is kept
// at or under maxBytes by evicting least-recently-used entries after writes.
//
// The cache is advisory: every error degrades to a miss or a skipped write and
// is never surfaced to the caller.
type DiskCache struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger

	// evictMu serializes eviction scans; entry reads and writes are lock-free
	// (atomic rename makes partially written entries unobservable).
	evictMu sync.Mutex
}

type cacheEntry struct {
	TextPreview string    `json:"text_preview"`
	Model       string    `json:"model"`
	Embedding   []float32 `json:"embedding"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskCache creates the cache directory if needed and returns the cache.
func NewDiskCache(dir string, maxBytes int64, logger *zap.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	logger.Info("embedding cache initialized", zap.String("path", dir), zap.Int64("max_bytes", maxBytes))
	return &DiskCache{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// cacheKey derives the entry filename from the model and the exact text bytes.
func cacheKey(text, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *DiskCache) entryPath(text, model string) string {
	return filepath.Join(c.dir, cacheKey(text, model)+".json")
}

// Get returns the cached embedding for (text, model) if present. A hit
// refreshes the entry's timestamp, which is what eviction sorts by.
func (c *DiskCache) Get(text, model string) ([]float32, bool) {
	path := c.entryPath(text, model)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		c.logger.Warn("cache touch failed", zap.String("path", path), zap.Error(err))
	}
	return entry.Embedding, true
}

// Put stores the embedding for (text, model) and then enforces the size
// ceiling. The entry file is written to a temp file and renamed into place so
// concurrent readers never observe a partial entry.
func (c *DiskCache) Put(text, model string, embedding []float32) {
	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	data, err := json.Marshal(cacheEntry{
		TextPreview: preview,
		Model:       model,
		Embedding:   embedding,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.Error(err))
		return
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.logger.Warn("cache write failed", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("cache write failed", zap.Error(err))
		return
	}
	if err := os.Rename(tmpName, c.entryPath(text, model)); err != nil {
		os.Remove(tmpName)
		c.logger.Warn("cache rename failed", zap.Error(err))
		return
	}

	c.evict()
}

// SizeBytes returns the cumulative size of all cache entries.
func (c *DiskCache) SizeBytes() int64 {
	var total int64
	for _, f := range c.listEntries() {
		total += f.size
	}
	return total
}

type entryInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *DiskCache) listEntries() []entryInfo {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("cache scan failed", zap.Error(err))
		return nil
	}
	entries := make([]entryInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Entry may have been evicted concurrently.
			continue
		}
		entries = append(entries, entryInfo{
			path:    filepath.Join(c.dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return entries
}

// evict removes least-recently-used entries until the cumulative size is at or
// under the ceiling. Best-effort under concurrency: entries removed by a
// concurrent evictor are simply skipped.
func (c *DiskCache) evict() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	entries := c.listEntries()
	var total int64
	for _, e := range entries {
		total += e.size
	}
	if total <= c.maxBytes {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	var removed int
	var removedBytes int64
	for _, e := range entries {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			continue
		}
		total -= e.size
		removedBytes += e.size
		removed++
	}
	c.logger.Info("cache cleanup completed",
		zap.Int("files_removed", removed),
		zap.Int64("bytes_removed", removedBytes),
		zap.Int("total_files", len(entries)),
	)
}
