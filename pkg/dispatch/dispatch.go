// Package dispatch routes component and hook tags to Go handlers and
// template-backed implementations.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// ErrUnknownComponent is returned for components nothing was registered for.
var ErrUnknownComponent = errors.New("unknown component")

// HandlerFunc renders one component or hook call.
type HandlerFunc func(call tmpl.Call) (string, error)

// Renderer renders a named template at a given include depth.
// *tmpl.Engine implements it.
type Renderer interface {
	RenderNested(name string, data map[string]any, depth int) (string, error)
}

// Dispatcher implements tmpl.Dispatcher. Components have exactly one
// handler, the last registered. Hooks may have many; their outputs are
// concatenated in registration order and an unknown hook renders nothing.
//
// Template-backed handlers render through the Renderer given to Bind with
// the call data as context: dict entries are bound directly and the whole
// value is available as "props" for components and "data" for hooks. Both
// shadow the values given to SetGlobals.
type Dispatcher struct {
	logger *slog.Logger

	mu         sync.RWMutex
	renderer   Renderer
	globals    map[string]any
	components map[string]HandlerFunc
	hooks      map[string][]HandlerFunc
}

func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:     logger,
		components: map[string]HandlerFunc{},
		hooks:      map[string][]HandlerFunc{},
	}
}

// Bind sets the renderer used by template-backed handlers. The engine
// usually takes the dispatcher as option, so binding happens after
// tmpl.New.
func (d *Dispatcher) Bind(r Renderer) {
	d.mu.Lock()
	d.renderer = r
	d.mu.Unlock()
}

// SetGlobals sets the values every template-backed handler starts with.
func (d *Dispatcher) SetGlobals(globals map[string]any) {
	d.mu.Lock()
	d.globals = maps.Clone(globals)
	d.mu.Unlock()
}

func (d *Dispatcher) HandleComponent(name string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.components[name]; ok {
		d.logger.Warn("component handler replaced", "component", name)
	}
	d.components[name] = fn
}

func (d *Dispatcher) HandleHook(name string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[name] = append(d.hooks[name], fn)
}

// ComponentTemplate renders the template named template for component name.
func (d *Dispatcher) ComponentTemplate(name, template string) {
	d.HandleComponent(name, d.templateHandler(template, "props"))
}

// HookTemplate appends the template named template to hook name.
func (d *Dispatcher) HookTemplate(name, template string) {
	d.HandleHook(name, d.templateHandler(template, "data"))
}

func (d *Dispatcher) templateHandler(template, key string) HandlerFunc {
	return func(call tmpl.Call) (string, error) {
		d.mu.RLock()
		r, globals := d.renderer, d.globals
		d.mu.RUnlock()
		if r == nil {
			return "", fmt.Errorf("%s %s: no renderer bound", call.Kind, call.Name)
		}
		return r.RenderNested(template, callContext(globals, call.Data, key), call.Depth)
	}
}

func callContext(globals map[string]any, data tmpl.Value, key string) map[string]any {
	ctx := maps.Clone(globals)
	if ctx == nil {
		ctx = map[string]any{}
	}
	if dict, ok := data.(tmpl.DictValue); ok {
		for k, v := range dict {
			ctx[k] = v
		}
	}
	ctx[key] = data
	return ctx
}

// Dispatch implements tmpl.Dispatcher.
func (d *Dispatcher) Dispatch(call tmpl.Call) (string, error) {
	switch call.Kind {
	case tmpl.CallComponent:
		d.mu.RLock()
		fn, ok := d.components[call.Name]
		d.mu.RUnlock()
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownComponent, call.Name)
		}
		return fn(call)
	case tmpl.CallHook:
		d.mu.RLock()
		fns := append([]HandlerFunc(nil), d.hooks[call.Name]...)
		d.mu.RUnlock()
		if len(fns) == 0 {
			d.logger.Debug("hook has no handlers", "hook", call.Name, "template", call.Template)
			return "", nil
		}
		var sb strings.Builder
		for _, fn := range fns {
			out, err := fn(call)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unsupported call kind %q", call.Kind)
}

// Components returns the registered component names, sorted.
func (d *Dispatcher) Components() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.components))
	for name := range d.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hooks returns the hook names with at least one handler, sorted.
func (d *Dispatcher) Hooks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.hooks))
	for name := range d.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
