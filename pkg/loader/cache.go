package loader

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

type cacheEntry struct {
	source   string
	modified time.Time
}

// Cache keeps template sources in memory. An entry is served as long as
// the wrapped loader reports the same modification time for it; loaders
// reporting the zero time are trusted until Invalidate or Reset.
type Cache struct {
	loader tmpl.Loader
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache(l tmpl.Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{loader: l, logger: logger, entries: map[string]cacheEntry{}}
}

func (c *Cache) Source(name string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if ok {
		if entry.modified.IsZero() {
			return entry.source, nil
		}
		modified, err := c.loader.LastModified(name)
		if err != nil {
			c.Invalidate(name)
			return "", err
		}
		if modified.Equal(entry.modified) {
			return entry.source, nil
		}
		c.logger.Debug("template changed", "name", name, "modified", modified)
	}

	modified, err := c.loader.LastModified(name)
	if err != nil {
		return "", err
	}
	src, err := c.loader.Source(name)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[name] = cacheEntry{source: src, modified: modified}
	c.mu.Unlock()
	return src, nil
}

func (c *Cache) LastModified(name string) (time.Time, error) {
	return c.loader.LastModified(name)
}

// Invalidate drops the cached source of name.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

// Reset drops every cached source.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
