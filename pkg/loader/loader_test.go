package loader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func newFiles(t *testing.T) (*Files, string, string, string) {
	t.Helper()
	theme, core, shop := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, core, "layout.html", "core layout")
	writeFile(t, core, "footer.html", "core footer")
	writeFile(t, theme, "layout.html", "theme layout")
	writeFile(t, shop, "product/card.html", "shop card")
	writeFile(t, theme, "shop/product/card.html", "theme card")
	writeFile(t, shop, "product/list.html", "shop list")
	f := &Files{ThemeDir: theme, Paths: []string{core}}
	f.AddNamespace("shop", shop)
	return f, theme, core, shop
}

func TestFilesLookupOrder(t *testing.T) {
	f, _, _, _ := newFiles(t)
	cases := map[string]string{
		"layout.html":             "theme layout",
		"footer.html":             "core footer",
		"@shop/product/card.html": "theme card",
		"@shop/product/list.html": "shop list",
	}
	for name, want := range cases {
		got, err := f.Source(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestFilesNotFound(t *testing.T) {
	f, _, _, _ := newFiles(t)
	for _, name := range []string{"missing.html", "@other/x.html", "@shop", "../secret", "@shop/../layout.html", "/etc/passwd", ""} {
		if _, err := f.Source(name); !errors.Is(err, tmpl.ErrTemplateNotFound) {
			t.Fatalf("%q: want not found, got %v", name, err)
		}
		if _, err := f.LastModified(name); !errors.Is(err, tmpl.ErrTemplateNotFound) {
			t.Fatalf("%q: want not found, got %v", name, err)
		}
	}
}

func TestFilesLastModified(t *testing.T) {
	f, theme, _, _ := newFiles(t)
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(theme, "layout.html"), stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	got, err := f.LastModified("layout.html")
	if err != nil {
		t.Fatalf("LastModified: %v", err)
	}
	if !got.Equal(stamp) {
		t.Fatalf("got %v, want %v", got, stamp)
	}
}

func TestFilesNames(t *testing.T) {
	f, _, _, _ := newFiles(t)
	names, err := f.Names(".html")
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	sort.Strings(names)
	want := []string{
		"@shop/product/card.html",
		"@shop/product/list.html",
		"footer.html",
		"layout.html",
		"shop/product/card.html",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesWithEngine(t *testing.T) {
	f, theme, _, _ := newFiles(t)
	writeFile(t, theme, "page.html", `{% extends "layout.html" %}`)
	writeFile(t, theme, "layout.html", `<{% block body %}{% include "@shop/product/card.html" %}{% endblock %}>`)
	out, err := tmpl.New(tmpl.Options{Loader: f}).Render("page.html", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<theme card>" {
		t.Fatalf("got %q", out)
	}
}

func TestFSLoader(t *testing.T) {
	l := NewFS(fstest.MapFS{
		"base.html":         {Data: []byte("base")},
		"partials/nav.html": {Data: []byte("nav"), ModTime: time.Unix(100, 0)},
	})
	if src, err := l.Source("partials/nav.html"); err != nil || src != "nav" {
		t.Fatalf("got %q, %v", src, err)
	}
	if mod, err := l.LastModified("partials/nav.html"); err != nil || !mod.Equal(time.Unix(100, 0)) {
		t.Fatalf("got %v, %v", mod, err)
	}
	for _, name := range []string{"nope.html", "../base.html", "/base.html"} {
		if _, err := l.Source(name); !errors.Is(err, tmpl.ErrTemplateNotFound) {
			t.Fatalf("%q: want not found, got %v", name, err)
		}
	}
}

type brokenLoader struct{}

func (brokenLoader) Source(string) (string, error) { return "", errors.New("disk on fire") }
func (brokenLoader) LastModified(string) (time.Time, error) {
	return time.Time{}, errors.New("disk on fire")
}

func TestChain(t *testing.T) {
	c := Chain{
		tmpl.MemoryLoader{"a": "first a"},
		tmpl.MemoryLoader{"a": "second a", "b": "second b"},
	}
	if src, _ := c.Source("a"); src != "first a" {
		t.Fatalf("got %q", src)
	}
	if src, _ := c.Source("b"); src != "second b" {
		t.Fatalf("got %q", src)
	}
	if _, err := c.Source("c"); !errors.Is(err, tmpl.ErrTemplateNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	broken := Chain{brokenLoader{}, tmpl.MemoryLoader{"a": "a"}}
	if _, err := broken.Source("a"); err == nil || errors.Is(err, tmpl.ErrTemplateNotFound) {
		t.Fatalf("want loader failure, got %v", err)
	}
}

type countingLoader struct {
	sources  map[string]string
	modified map[string]time.Time
	reads    int
}

func (l *countingLoader) Source(name string) (string, error) {
	src, ok := l.sources[name]
	if !ok {
		return "", tmpl.NotFoundError{Name: name}
	}
	l.reads++
	return src, nil
}

func (l *countingLoader) LastModified(name string) (time.Time, error) {
	if _, ok := l.sources[name]; !ok {
		return time.Time{}, tmpl.NotFoundError{Name: name}
	}
	return l.modified[name], nil
}

func TestCacheRevalidates(t *testing.T) {
	inner := &countingLoader{
		sources:  map[string]string{"a": "v1"},
		modified: map[string]time.Time{"a": time.Unix(1, 0)},
	}
	c := NewCache(inner, nil)
	for i := 0; i < 3; i++ {
		if src, err := c.Source("a"); err != nil || src != "v1" {
			t.Fatalf("got %q, %v", src, err)
		}
	}
	if inner.reads != 1 {
		t.Fatalf("reads = %d, want 1", inner.reads)
	}

	inner.sources["a"] = "v2"
	inner.modified["a"] = time.Unix(2, 0)
	if src, _ := c.Source("a"); src != "v2" {
		t.Fatalf("stale source %q", src)
	}
	if inner.reads != 2 {
		t.Fatalf("reads = %d, want 2", inner.reads)
	}

	delete(inner.sources, "a")
	if _, err := c.Source("a"); !errors.Is(err, tmpl.ErrTemplateNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("removed template still cached")
	}
}

func TestCacheZeroTimeNeedsInvalidate(t *testing.T) {
	inner := &countingLoader{sources: map[string]string{"a": "v1", "b": "b"}}
	c := NewCache(inner, nil)
	c.Source("a")
	c.Source("b")
	inner.sources["a"] = "v2"
	if src, _ := c.Source("a"); src != "v1" {
		t.Fatalf("got %q, want cached v1", src)
	}
	c.Invalidate("a")
	if src, _ := c.Source("a"); src != "v2" {
		t.Fatalf("got %q after invalidate", src)
	}
	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("Len = %d after reset", c.Len())
	}
}

func TestCacheDoesNotKeepFailedResolution(t *testing.T) {
	inner := &countingLoader{sources: map[string]string{
		"child.html": `{% extends "base.html" %}{% block b %}C{% endblock %}`,
	}}
	e := tmpl.New(tmpl.Options{Loader: NewCache(inner, nil)})
	if _, err := e.Render("child.html", nil); !errors.Is(err, tmpl.ErrTemplateNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	inner.sources["base.html"] = `[{% block b %}P{% endblock %}]`
	out, err := e.Render("child.html", nil)
	if err != nil {
		t.Fatalf("render after adding parent: %v", err)
	}
	if out != "[C]" {
		t.Fatalf("got %q", out)
	}
}

func TestWatcherInvalidatesCache(t *testing.T) {
	f, theme, _, _ := newFiles(t)
	cache := NewCache(f, nil)
	if _, err := cache.Source("layout.html"); err != nil {
		t.Fatalf("Source: %v", err)
	}
	w, err := Watch(f, cache, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	writeFile(t, theme, "layout.html", "new theme layout")
	timeout := time.After(5 * time.Second)
	for {
		select {
		case name := <-w.Changed():
			if name != "layout.html" {
				continue
			}
			src, err := cache.Source("layout.html")
			if err != nil || src != "new theme layout" {
				t.Fatalf("got %q, %v", src, err)
			}
			return
		case <-timeout:
			t.Fatalf("no change event")
		}
	}
}

func TestWatcherNames(t *testing.T) {
	w := &Watcher{
		roots: []Root{{Dir: "/theme"}, {Dir: "/core"}, {Dir: "/shop", Prefix: "@shop/"}},
		theme: "/theme",
	}
	got := w.names("/theme/shop/card.html")
	want := []string{"shop/card.html", "@shop/card.html"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"@shop/list.html"}, w.names("/shop/list.html")); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if got := w.names("/elsewhere/x.html"); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
