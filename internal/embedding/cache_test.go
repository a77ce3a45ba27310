package embedding

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T, maxBytes int64) *DiskCache {
	t.Helper()
	c, err := NewDiskCache(t.TempDir(), maxBytes, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	return c
}

func TestDiskCacheRoundTrip(t *testing.T) {
	c := newTestCache(t, 1<<20)

	if _, ok := c.Get("some text", "model-a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	vec := []float32{0.1, 0.2, 0.3}
	c.Put("some text", "model-a", vec)

	got, ok := c.Get("some text", "model-a")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if len(got) != 3 || got[0] != 0.1 || got[2] != 0.3 {
		t.Errorf("Get = %v, want %v", got, vec)
	}
}

func TestDiskCacheKeyedByModel(t *testing.T) {
	c := newTestCache(t, 1<<20)
	c.Put("same text", "model-a", []float32{1})
	if _, ok := c.Get("same text", "model-b"); ok {
		t.Error("entry for model-a must not be served for model-b")
	}
}

func TestDiskCacheCeilingEnforcedAfterPut(t *testing.T) {
	c := newTestCache(t, 600)

	// Each entry is well over 100 bytes of JSON; the ceiling forces eviction.
	big := make([]float32, 32)
	for i := 0; i < 10; i++ {
		c.Put(string(rune('a'+i)), "m", big)
		if size := c.SizeBytes(); size > 600 {
			t.Fatalf("cache size %d exceeds ceiling after put %d", size, i)
		}
	}
}

func TestDiskCacheEvictsOldestFirst(t *testing.T) {
	c := newTestCache(t, 1<<20)
	c.Put("old", "m", []float32{1, 2})
	c.Put("new", "m", []float32{3, 4})

	// Age the first entry so eviction order is unambiguous.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(c.entryPath("old", "m"), past, past); err != nil {
		t.Fatal(err)
	}

	c.maxBytes = c.SizeBytes() - 1
	c.evict()

	if _, ok := c.Get("old", "m"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("new", "m"); !ok {
		t.Error("expected newest entry to survive")
	}
}

func TestDiskCacheCorruptEntryIsMiss(t *testing.T) {
	c := newTestCache(t, 1<<20)
	c.Put("text", "m", []float32{1})
	if err := os.WriteFile(c.entryPath("text", "m"), []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("text", "m"); ok {
		t.Error("corrupt entry must read as a miss")
	}
}

func TestDiskCacheIgnoresForeignFiles(t *testing.T) {
	c := newTestCache(t, 1<<20)
	if err := os.WriteFile(filepath.Join(c.dir, "README"), []byte("not an entry"), 0600); err != nil {
		t.Fatal(err)
	}
	c.Put("text", "m", []float32{1})
	if _, ok := c.Get("text", "m"); !ok {
		t.Error("expected hit despite foreign file in cache dir")
	}
}
