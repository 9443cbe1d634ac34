package loader

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows the directories of a Files loader and invalidates the
// cached source of every template that changes on disk. Changed template
// names are also published on Changed.
type Watcher struct {
	watcher *fsnotify.Watcher
	roots   []Root
	theme   string
	cache   *Cache
	logger  *slog.Logger
	changed chan string

	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts watching every directory files searches. cache may be nil.
func Watch(files *Files, cache *Cache, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fw,
		roots:   files.Dirs(),
		theme:   files.ThemeDir,
		cache:   cache,
		logger:  logger,
		changed: make(chan string, 64),
		done:    make(chan struct{}),
	}
	for _, root := range w.roots {
		if err := w.addTree(root.Dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	go w.loop()
	return w, nil
}

// Changed returns the channel changed template names are sent on. Names
// are dropped when nobody keeps up with the channel.
func (w *Watcher) Changed() <-chan string {
	return w.changed
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("template directory does not exist", "dir", dir)
		return nil
	}
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watching templates", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Error("watching new directory", "path", event.Name, "error", err)
		}
	}
	for _, name := range w.names(event.Name) {
		if w.cache != nil {
			w.cache.Invalidate(name)
		}
		w.logger.Debug("template changed on disk", "name", name, "op", event.Op.String())
		select {
		case w.changed <- name:
		default:
		}
	}
}

// names maps a file path back to the template names it may be loaded by.
func (w *Watcher) names(p string) []string {
	var out []string
	for _, root := range w.roots {
		rel, err := filepath.Rel(root.Dir, p)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		out = append(out, root.Prefix+rel)
		if root.Dir == w.theme && root.Prefix == "" && strings.Contains(rel, "/") {
			out = append(out, "@"+rel)
		}
	}
	return out
}
