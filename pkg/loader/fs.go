package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// FS loads templates from an fs.FS, e.g. an embed.FS of built-in templates.
type FS struct {
	FS fs.FS
}

func NewFS(fsys fs.FS) FS {
	return FS{FS: fsys}
}

func (l FS) Source(name string) (string, error) {
	if !fs.ValidPath(name) || !validName(name) {
		return "", tmpl.NotFoundError{Name: name}
	}
	b, err := fs.ReadFile(l.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", tmpl.NotFoundError{Name: name}
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(b), nil
}

func (l FS) LastModified(name string) (time.Time, error) {
	if !fs.ValidPath(name) || !validName(name) {
		return time.Time{}, tmpl.NotFoundError{Name: name}
	}
	info, err := fs.Stat(l.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, tmpl.NotFoundError{Name: name}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return info.ModTime(), nil
}
