package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"time"

	"github.com/use-agent/pagecap/models"
)

// entry holds a cached artifact with its creation timestamp.
type entry struct {
	artifact  models.Artifact
	createdAt time.Time
}

// Cache remembers artifacts produced by previous jobs so that identical
// requests within a caller-chosen max age can skip the browser.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine runs every 5 minutes to evict entries older
// than 1 hour.
func New(maxEntries int) *Cache {
	c := newCache(maxEntries, time.Now)
	go c.cleanupLoop()
	return c
}

func newCache(maxEntries int, now func() time.Time) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Key identifies a job by everything that shapes its artifact.
func Key(job models.CaptureJob) string {
	h := sha256.New()
	for _, part := range []string{job.URL, job.Cleanup.String(), string(job.Format), job.BaseName, job.OutputDir} {
		h.Write([]byte(part))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached artifact for key if it is younger than maxAgeMs
// and its primary file is still on disk. maxAgeMs <= 0 disables lookup.
func (c *Cache) Get(key string, maxAgeMs int) (*models.Artifact, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}

	if fi, err := os.Stat(e.artifact.Path); err != nil || fi.Size() == 0 {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return nil, false
	}

	art := e.artifact
	return &art, true
}

// Set stores an artifact. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key string, art *models.Artifact) {
	if art == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		artifact:  *art,
		createdAt: c.now(),
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.evictBefore(c.now().Add(-1 * time.Hour))
	}
}

func (c *Cache) evictBefore(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
