// Package config reads theme configuration files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	v "github.com/ersinkoc/Shopologic-sub016/pkg/validator"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExtension = ".html"
	DefaultCacheDir  = ".themecache"
)

// Config describes one theme and where its templates come from.
//
//	theme: summer
//	theme_dir: themes/summer
//	paths: [templates]
//	namespaces:
//	  shop: [modules/shop/templates]
//	components:
//	  price: components/price.html
//	hooks:
//	  head: [hooks/meta.html]
//	globals:
//	  title: "{{ shop_name | upper }}"
type Config struct {
	Theme           string                         `yaml:"theme"`
	ThemeDir        string                         `yaml:"theme_dir,omitempty"`
	Paths           []string                       `yaml:"paths,omitempty"`
	Namespaces      map[string][]string            `yaml:"namespaces,omitempty"`
	Extension       string                         `yaml:"extension,omitempty"`
	MaxExtendsDepth int                            `yaml:"max_extends_depth,omitempty"`
	MaxIncludeDepth int                            `yaml:"max_include_depth,omitempty"`
	FiltersScript   string                         `yaml:"filters_script,omitempty"`
	Database        string                         `yaml:"database,omitempty"`
	Remote          *Remote                        `yaml:"remote,omitempty"`
	Components      map[string]string              `yaml:"components,omitempty"`
	Hooks           map[string][]string            `yaml:"hooks,omitempty"`
	Globals         map[string]tmpl.TemplateString `yaml:"globals,omitempty"`
	Data            map[string]any                 `yaml:"data,omitempty"`
}

// Remote points at an HTTP theme store.
type Remote struct {
	URL      string `yaml:"url"`
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// Load reads the configuration file at path. Relative directories in the
// file are taken relative to the directory holding it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Decode reads a configuration document, applies defaults and validates
// the result. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.MaxExtendsDepth == 0 {
		c.MaxExtendsDepth = tmpl.DefaultMaxExtendsDepth
	}
	if c.MaxIncludeDepth == 0 {
		c.MaxIncludeDepth = tmpl.DefaultMaxIncludeDepth
	}
	if c.Remote != nil && c.Remote.CacheDir == "" {
		c.Remote.CacheDir = DefaultCacheDir
	}
}

func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.ThemeDir = abs(c.ThemeDir)
	for i, p := range c.Paths {
		c.Paths[i] = abs(p)
	}
	for ns, dirs := range c.Namespaces {
		for i, p := range dirs {
			c.Namespaces[ns][i] = abs(p)
		}
	}
	c.FiltersScript = abs(c.FiltersScript)
	if c.Database != "" && !strings.HasPrefix(c.Database, "file:") && c.Database != ":memory:" {
		c.Database = abs(c.Database)
	}
	if c.Remote != nil {
		c.Remote.CacheDir = abs(c.Remote.CacheDir)
	}
}

func (c Config) Validate() error {
	return v.All(
		v.NotEmpty(c.Theme, "theme"),
		v.NoDuplicates(c.Paths, "paths"),
		v.MapDict(c.Namespaces, func(ns string, dirs []string, desc string) error {
			return v.All(
				validNamespace(ns, desc),
				v.NoDuplicates(dirs, desc),
			)
		}, "namespaces"),
		v.InRange(c.MaxExtendsDepth, 1, 1024, "max_extends_depth"),
		v.InRange(c.MaxIncludeDepth, 1, 1024, "max_include_depth"),
		validExtension(c.Extension),
		c.Remote.Validate(),
		v.MapDict(c.Components, func(_ string, template string, desc string) error {
			return v.NotEmpty(template, desc)
		}, "components"),
		v.MapDict(c.Hooks, func(_ string, templates []string, desc string) error {
			return v.Map(templates, v.NotEmpty, desc)
		}, "hooks"),
		v.MapDict(c.Globals, func(_ string, src tmpl.TemplateString, desc string) error {
			return v.Template(string(src), desc)
		}, "globals"),
		c.hasSource(),
	)
}

func (r *Remote) Validate() error {
	if r == nil {
		return nil
	}
	return v.All(
		v.NotEmpty(r.URL, "remote.url"),
		v.HTTPURL(r.URL, "remote.url"),
	)
}

func (c Config) hasSource() error {
	if c.ThemeDir == "" && len(c.Paths) == 0 && len(c.Namespaces) == 0 && c.Database == "" && c.Remote == nil {
		return errors.New("config needs at least one of theme_dir, paths, namespaces, database or remote")
	}
	return nil
}

func validNamespace(ns, desc string) error {
	if ns == "" || strings.ContainsAny(ns, "/@\\") {
		return fmt.Errorf("%s: invalid namespace name %q", desc, ns)
	}
	return nil
}

func validExtension(ext string) error {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return fmt.Errorf("extension must look like .html, got %q", ext)
	}
	return nil
}
