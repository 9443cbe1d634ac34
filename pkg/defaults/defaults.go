// Package defaults ships the built-in templates every theme falls back to.
package defaults

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/ersinkoc/Shopologic-sub016/pkg/loader"
)

//go:embed templates
var files embed.FS

// FS returns the built-in templates rooted at their template names.
func FS() fs.FS {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Loader serves the built-in templates.
func Loader() loader.FS {
	return loader.NewFS(FS())
}

// Names lists every built-in template, sorted.
func Names() []string {
	var names []string
	err := fs.WalkDir(FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	sort.Strings(names)
	return names
}
