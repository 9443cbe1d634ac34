// Package theme assembles an engine, its loaders, filters and dispatcher
// from a theme configuration.
package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/ersinkoc/Shopologic-sub016/pkg/config"
	"github.com/ersinkoc/Shopologic-sub016/pkg/defaults"
	"github.com/ersinkoc/Shopologic-sub016/pkg/dispatch"
	"github.com/ersinkoc/Shopologic-sub016/pkg/filters"
	"github.com/ersinkoc/Shopologic-sub016/pkg/loader"
	"github.com/ersinkoc/Shopologic-sub016/pkg/loader/remote"
	"github.com/ersinkoc/Shopologic-sub016/pkg/loader/sqlstore"
	"github.com/ersinkoc/Shopologic-sub016/pkg/starlark"
	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// Theme is a ready to render theme.
type Theme struct {
	Config     *config.Config
	Engine     *tmpl.Engine
	Dispatcher *dispatch.Dispatcher
	Files      *loader.Files
	Cache      *loader.Cache
	Store      *sqlstore.Store

	logger  *slog.Logger
	globals map[string]any
}

// Open builds the theme described by cfg. Templates are looked up in the
// theme and template directories, then the database, then the remote
// store and finally the built-in defaults.
func Open(cfg *config.Config, logger *slog.Logger) (*Theme, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("theme", cfg.Theme)
	t := &Theme{Config: cfg, logger: logger}

	t.Files = &loader.Files{ThemeDir: cfg.ThemeDir, Paths: cfg.Paths, Namespaces: cfg.Namespaces, Logger: logger}
	chain := loader.Chain{t.Files}
	if cfg.Database != "" {
		store, err := sqlstore.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		t.Store = store
		chain = append(chain, store)
	}
	if cfg.Remote != nil {
		chain = append(chain, remote.NewLoader(cfg.Remote.URL, remote.NewCache(cfg.Remote.CacheDir, logger)))
	}
	chain = append(chain, defaults.Loader())
	t.Cache = loader.NewCache(chain, logger)

	registry := tmpl.DefaultFilters().Merge(filters.Extended())
	base := maps.Clone(cfg.Data)
	if base == nil {
		base = map[string]any{}
	}
	if cfg.FiltersScript != "" {
		ev := starlark.NewEvaluator(logger)
		if err := ev.ExecFile(cfg.FiltersScript, nil); err != nil {
			t.Close()
			return nil, err
		}
		registry = registry.Merge(ev.Filters())
		for k, v := range ev.Globals() {
			base[k] = v
		}
	}

	t.Dispatcher = dispatch.New(logger)
	for _, name := range sortedKeys(cfg.Components) {
		t.Dispatcher.ComponentTemplate(name, cfg.Components[name])
	}
	for _, name := range sortedKeys(cfg.Hooks) {
		for _, tpl := range cfg.Hooks[name] {
			t.Dispatcher.HookTemplate(name, tpl)
		}
	}

	t.Engine = tmpl.New(tmpl.Options{
		Loader:          t.Cache,
		Filters:         registry,
		Dispatcher:      t.Dispatcher,
		Logger:          logger,
		MaxExtendsDepth: cfg.MaxExtendsDepth,
		MaxIncludeDepth: cfg.MaxIncludeDepth,
	})
	t.Dispatcher.Bind(t.Engine)

	for _, name := range sortedKeys(cfg.Globals) {
		out, err := cfg.Globals[name].Render(t.Engine, base)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("global %s: %w", name, err)
		}
		base[name] = out
	}
	t.globals = base
	t.Dispatcher.SetGlobals(base)
	logger.Debug("theme opened", "loaders", len(chain), "filters", len(registry), "globals", len(base))
	return t, nil
}

// Render renders the named template. data entries shadow theme globals.
func (t *Theme) Render(name string, data map[string]any) (string, error) {
	ctx := maps.Clone(t.globals)
	maps.Copy(ctx, data)
	return t.Engine.Render(name, ctx)
}

// Globals returns a copy of the values every render starts with.
func (t *Theme) Globals() map[string]any {
	return maps.Clone(t.globals)
}

// Names lists the templates of the theme directories and the database.
// Built-in defaults are listed only when includeDefaults is set.
func (t *Theme) Names(ctx context.Context, includeDefaults bool) ([]string, error) {
	seen := map[string]bool{}
	names, err := t.Files.Names(t.Config.Extension)
	if err != nil {
		return nil, err
	}
	if t.Store != nil {
		stored, err := t.Store.Names(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, stored...)
	}
	if includeDefaults {
		names = append(names, defaults.Names()...)
	}
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Problem is a template that failed to parse or resolve.
type Problem struct {
	Name string
	Err  error
}

// Check resolves every template of the theme and reports the failures.
// Component and hook templates named in the configuration are checked too.
func (t *Theme) Check(ctx context.Context) (checked int, problems []Problem, err error) {
	names, err := t.Names(ctx, false)
	if err != nil {
		return 0, nil, err
	}
	known := map[string]bool{}
	for _, n := range names {
		known[n] = true
	}
	for _, name := range sortedKeys(t.Config.Components) {
		if tpl := t.Config.Components[name]; !known[tpl] {
			known[tpl] = true
			names = append(names, tpl)
		}
	}
	for _, name := range sortedKeys(t.Config.Hooks) {
		for _, tpl := range t.Config.Hooks[name] {
			if !known[tpl] {
				known[tpl] = true
				names = append(names, tpl)
			}
		}
	}
	for _, name := range names {
		if _, err := t.Engine.Resolve(name); err != nil {
			problems = append(problems, Problem{Name: name, Err: err})
		}
	}
	return len(names), problems, nil
}

// Watch invalidates cached templates when theme files change.
func (t *Theme) Watch() (*loader.Watcher, error) {
	return loader.Watch(t.Files, t.Cache, t.logger)
}

func (t *Theme) Close() error {
	if t.Store != nil {
		return t.Store.Close()
	}
	return nil
}

// IsNotFound reports whether err means that the template name itself does
// not exist, as opposed to a parent or included template it refers to.
func IsNotFound(err error, name string) bool {
	var resErr *tmpl.ResolutionError
	return errors.As(err, &resErr) && resErr.Kind == tmpl.TemplateNotFound && resErr.Name == name
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TemplateName maps a request path to a template name: "/" is index and
// the extension is appended when missing.
func TemplateName(path, ext string) string {
	name := strings.Trim(path, "/")
	if name == "" {
		name = "index"
	}
	if !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}
