// Package loader provides tmpl.Loader implementations for theme templates.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// Files loads templates from directories on disk.
//
// A name of the form "@ns/rel/path" is looked up in <ThemeDir>/ns/rel/path
// first and then in every directory registered for namespace ns. Any other
// name is looked up in <ThemeDir>/name and then in each of Paths. The theme
// directory therefore overrides whatever a module or the core ships.
type Files struct {
	ThemeDir   string
	Paths      []string
	Namespaces map[string][]string
	Logger     *slog.Logger
}

// AddNamespace registers dir as a search location for "@ns/..." names.
func (f *Files) AddNamespace(ns, dir string) {
	if f.Namespaces == nil {
		f.Namespaces = map[string][]string{}
	}
	f.Namespaces[ns] = append(f.Namespaces[ns], dir)
}

func (f *Files) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// candidates lists the files that may hold name, in lookup order.
func (f *Files) candidates(name string) ([]string, bool) {
	ns, rel, namespaced := splitNamespace(name)
	if !validName(rel) {
		return nil, false
	}
	var out []string
	if namespaced {
		if ns == "" {
			return nil, false
		}
		if f.ThemeDir != "" {
			out = append(out, filepath.Join(f.ThemeDir, ns, filepath.FromSlash(rel)))
		}
		for _, dir := range f.Namespaces[ns] {
			out = append(out, filepath.Join(dir, filepath.FromSlash(rel)))
		}
		return out, true
	}
	if f.ThemeDir != "" {
		out = append(out, filepath.Join(f.ThemeDir, filepath.FromSlash(rel)))
	}
	for _, dir := range f.Paths {
		out = append(out, filepath.Join(dir, filepath.FromSlash(rel)))
	}
	return out, true
}

// locate returns the first existing file for name.
func (f *Files) locate(name string) (string, os.FileInfo, error) {
	paths, ok := f.candidates(name)
	if !ok {
		f.logger().Warn("rejected template name", "name", name)
		return "", nil, tmpl.NotFoundError{Name: name}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			f.logger().Debug("template located", "name", name, "path", p)
			return p, info, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", nil, tmpl.NotFoundError{Name: name}
}

// Path returns the file name resolves to.
func (f *Files) Path(name string) (string, error) {
	p, _, err := f.locate(name)
	return p, err
}

func (f *Files) Source(name string) (string, error) {
	p, _, err := f.locate(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p, err)
	}
	return string(b), nil
}

func (f *Files) LastModified(name string) (time.Time, error) {
	_, info, err := f.locate(name)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Dirs returns every directory searched by the loader, theme directory
// first, together with the name prefix templates found there are known by.
func (f *Files) Dirs() []Root {
	var roots []Root
	if f.ThemeDir != "" {
		roots = append(roots, Root{Dir: f.ThemeDir})
	}
	for _, dir := range f.Paths {
		roots = append(roots, Root{Dir: dir})
	}
	for ns, dirs := range f.Namespaces {
		for _, dir := range dirs {
			roots = append(roots, Root{Dir: dir, Prefix: "@" + ns + "/"})
		}
	}
	return roots
}

// Root is a template directory and the prefix its names carry.
type Root struct {
	Dir    string
	Prefix string
}

// Names walks every root and returns the template names found, with ext
// as file suffix filter. Names shadowed by an earlier root are returned
// once.
func (f *Files) Names(ext string) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, root := range f.Dirs() {
		err := filepath.WalkDir(root.Dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ext) {
				return nil
			}
			rel, err := filepath.Rel(root.Dir, p)
			if err != nil {
				return err
			}
			name := root.Prefix + filepath.ToSlash(rel)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", root.Dir, err)
		}
	}
	return names, nil
}

func splitNamespace(name string) (ns, rel string, ok bool) {
	if !strings.HasPrefix(name, "@") {
		return "", name, false
	}
	ns, rel, found := strings.Cut(name[1:], "/")
	if !found {
		return ns, "", true
	}
	return ns, rel, true
}

// validName reports whether name is a relative slash-separated path that
// stays below its root.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return false
		}
	}
	return path.Clean(name) != "."
}
