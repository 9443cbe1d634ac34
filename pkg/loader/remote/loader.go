package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// Loader serves templates published at <BaseURL>/<name>.
type Loader struct {
	BaseURL string
	Cache   *Cache
	Timeout time.Duration
}

func NewLoader(baseURL string, cache *Cache) *Loader {
	return &Loader{BaseURL: strings.TrimRight(baseURL, "/"), Cache: cache, Timeout: time.Minute}
}

func (l *Loader) url(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	segs := strings.Split(name, "/")
	for i, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
		segs[i] = url.PathEscape(seg)
	}
	return l.BaseURL + "/" + strings.Join(segs, "/"), true
}

func (l *Loader) get(name string) (Entry, error) {
	u, ok := l.url(name)
	if !ok {
		return Entry{}, tmpl.NotFoundError{Name: name}
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.Timeout)
	defer cancel()
	entry, err := l.Cache.Get(ctx, u)
	switch {
	case errors.Is(err, ErrNotFound):
		return Entry{}, tmpl.NotFoundError{Name: name}
	case errors.Is(err, errClient):
		return Entry{}, fmt.Errorf("fetching template %s: %w", name, err)
	case err != nil:
		// An unreachable store without a cached copy lets later loaders
		// in a chain serve the name.
		l.Cache.Logger.Warn("theme store unavailable", "template", name, "error", err)
		return Entry{}, fmt.Errorf("%w (theme store unavailable: %v)", tmpl.NotFoundError{Name: name}, err)
	}
	return entry, nil
}

func (l *Loader) Source(name string) (string, error) {
	entry, err := l.get(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(entry.Path)
	if err != nil {
		return "", fmt.Errorf("reading cached template %s: %w", name, err)
	}
	return string(b), nil
}

// LastModified reports the Last-Modified header of the template, or the
// zero time when the server sends none.
func (l *Loader) LastModified(name string) (time.Time, error) {
	entry, err := l.get(name)
	if err != nil {
		return time.Time{}, err
	}
	return entry.LastModified, nil
}
