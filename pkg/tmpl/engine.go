package tmpl

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

const (
	DefaultMaxExtendsDepth = 64
	DefaultMaxIncludeDepth = 32
)

// Options configures an Engine. Every field is optional.
type Options struct {
	// Loader resolves extends and include targets. Without a loader only
	// RenderString with self-contained sources works.
	Loader Loader
	// Filters replaces the default filter registry when non-nil. Use
	// DefaultFilters().Merge(extra) to extend it instead.
	Filters    Filters
	Dispatcher Dispatcher
	Logger     *slog.Logger

	MaxExtendsDepth int
	MaxIncludeDepth int
}

// Engine runs the Loader, Lexer, Parser, Resolver and Render pipeline. It
// holds no mutable state and is safe for concurrent use as long as its
// Loader and Dispatcher are.
type Engine struct {
	loader     Loader
	filters    Filters
	dispatcher Dispatcher
	logger     *slog.Logger
	maxExtends int
	maxInclude int
}

// New returns an Engine configured by opts.
func New(opts Options) *Engine {
	e := &Engine{
		loader:     opts.Loader,
		filters:    opts.Filters,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		maxExtends: opts.MaxExtendsDepth,
		maxInclude: opts.MaxIncludeDepth,
	}
	if e.filters == nil {
		e.filters = DefaultFilters()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.maxExtends <= 0 {
		e.maxExtends = DefaultMaxExtendsDepth
	}
	if e.maxInclude <= 0 {
		e.maxInclude = DefaultMaxIncludeDepth
	}
	return e
}

// Render renders the named template with data as the base scope. The
// caller's map is never modified.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	return e.RenderNested(name, data, 0)
}

// RenderNested renders the named template as if it was included at the
// given depth. Dispatchers rendering template-backed components use it so
// that component recursion is bounded like include recursion.
func (e *Engine) RenderNested(name string, data map[string]any, depth int) (string, error) {
	if depth > e.maxInclude {
		return "", &IncludeError{Kind: MaxDepthExceeded, Name: name, Depth: depth}
	}
	tree, err := e.Resolve(name)
	if err != nil {
		return "", err
	}
	return e.execute(tree, data, depth)
}

// RenderString parses src under the given name and renders it. The source
// may extend or include templates served by the Loader.
func (e *Engine) RenderString(name, src string, data map[string]any) (string, error) {
	tree, err := Parse(name, src)
	if err != nil {
		return "", err
	}
	if tree, err = e.resolve(tree); err != nil {
		return "", err
	}
	return e.execute(tree, data, 0)
}

// Resolve loads the named template and returns its effective tree, with
// the extends chain flattened and every block replaced by its final body.
func (e *Engine) Resolve(name string) (*TemplateNode, error) {
	tree, err := e.load(name, nil)
	if err != nil {
		return nil, err
	}
	return e.resolve(tree)
}

func (e *Engine) execute(tree *TemplateNode, data map[string]any, depth int) (string, error) {
	st := &renderState{eng: e, name: tree.Name, depth: depth, buf: new(bytes.Buffer)}
	if err := st.renderNodes(tree.Body, NewScope(NewContextFromAny(data))); err != nil {
		return "", err
	}
	return st.buf.String(), nil
}

// load fetches and parses one template. chain lists the templates that led
// to it, for diagnostics.
func (e *Engine) load(name string, chain []string) (*TemplateNode, error) {
	full := append(append([]string(nil), chain...), name)
	if e.loader == nil {
		return nil, &ResolutionError{Kind: LoadFailed, Name: name, Chain: full, Err: errors.New("no loader configured")}
	}
	src, err := e.loader.Source(name)
	if errors.Is(err, ErrTemplateNotFound) {
		return nil, &ResolutionError{Kind: TemplateNotFound, Name: name, Chain: full, Err: err}
	}
	if err != nil {
		return nil, &ResolutionError{Kind: LoadFailed, Name: name, Chain: full, Err: fmt.Errorf("loading %s: %w", name, err)}
	}
	return Parse(name, src)
}
