// Package remote loads templates from a theme store over HTTP.
package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// ErrNotFound is returned by Cache.Get when the server answers 404.
var ErrNotFound = errors.New("remote resource not found")

// Cache is a persistent HTTP cache with ETag/Last-Modified revalidation.
type Cache struct {
	Dir     string
	Client  *http.Client
	Retries int
	Backoff time.Duration
	Logger  *slog.Logger
}

// NewCache returns a Cache storing its files in dir.
func NewCache(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: 3,
		Backoff: time.Second,
		Logger:  logger,
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	DataFile     string `json:"data_file"`
}

// Entry describes a cached response body.
type Entry struct {
	Path         string
	LastModified time.Time
	FromCache    bool
}

// Get fetches url into the cache. A cached copy is revalidated with a
// conditional request and served as is when the server cannot be reached.
func (c *Cache) Get(ctx context.Context, url string) (Entry, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")

	var m meta
	haveMeta := false
	if b, err := os.ReadFile(mpath); err == nil {
		if json.Unmarshal(b, &m) == nil && m.URL == url && m.DataFile != "" && fileExists(filepath.Join(c.Dir, m.DataFile)) {
			haveMeta = true
		}
	}

	if haveMeta {
		entry, err := c.revalidate(ctx, url, m)
		if err == nil || errors.Is(err, ErrNotFound) {
			return entry, err
		}
		c.Logger.Warn("revalidation failed, serving cached copy", "url", url, "error", err)
		return m.entry(c.Dir, true), nil
	}

	var lastErr error
	for attempt := 0; attempt < max(c.Retries, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Entry{}, ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * c.Backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Entry{}, err
		}
		entry, err := c.fetch(req, url)
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, errClient) {
			return entry, err
		}
		lastErr = err
	}
	return Entry{}, lastErr
}

var errClient = errors.New("client error")

func (c *Cache) revalidate(ctx context.Context, url string, m meta) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, err
	}
	if m.ETag != "" {
		req.Header.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		req.Header.Set("If-Modified-Since", m.LastModified)
	}
	return c.fetch(req, url)
}

// fetch performs req and stores a successful body. A 304 answer is served
// from the existing metadata.
func (c *Cache) fetch(req *http.Request, url string) (Entry, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return Entry{}, err
	}
	defer resp.Body.Close()

	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	switch {
	case resp.StatusCode == http.StatusNotModified:
		b, err := os.ReadFile(mpath)
		if err != nil {
			return Entry{}, err
		}
		var m meta
		if err := json.Unmarshal(b, &m); err != nil {
			return Entry{}, fmt.Errorf("reading cache metadata: %w", err)
		}
		c.Logger.Debug("remote template not modified", "url", url)
		return m.entry(c.Dir, true), nil
	case resp.StatusCode == http.StatusNotFound:
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Entry{}, fmt.Errorf("%w: HTTP %d for %s", errClient, resp.StatusCode, url)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Entry{}, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return Entry{}, err
	}
	m := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     key + ".data",
	}
	if err := atomic.WriteFile(filepath.Join(c.Dir, m.DataFile), resp.Body); err != nil {
		return Entry{}, fmt.Errorf("storing %s: %w", url, err)
	}
	if err := writeMeta(mpath, m); err != nil {
		return Entry{}, err
	}
	c.Logger.Debug("remote template downloaded", "url", url, "etag", m.ETag)
	return m.entry(c.Dir, false), nil
}

func (m meta) entry(dir string, fromCache bool) Entry {
	e := Entry{Path: filepath.Join(dir, m.DataFile), FromCache: fromCache}
	if t, err := http.ParseTime(m.LastModified); err == nil {
		e.LastModified = t
	}
	return e
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
