package starlark

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"go.starlark.net/starlark"
)

// maxSteps bounds the work a single filter call may do.
const maxSteps = 1_000_000

// Evaluator runs a theme's filter script. Every public top-level function
// of the script becomes a template filter receiving the filtered value as
// first argument followed by the filter arguments:
//
//	def shout(value, suffix = "!"):
//	    return value.upper() + suffix
//
// Public top-level values that are not callable are exported as globals.
// After ExecFile the script globals are frozen, so filters can be called
// from concurrent renders.
type Evaluator struct {
	name    string
	logger  *slog.Logger
	globals starlark.StringDict
}

// NewEvaluator creates an evaluator. A nil logger uses slog.Default.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger, globals: starlark.StringDict{}}
}

func (e *Evaluator) thread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info(msg, "script", e.name)
		},
	}
	thread.SetMaxExecutionSteps(maxSteps)
	return thread
}

// ExecFile executes a filter script. src may be nil to read filename.
func (e *Evaluator) ExecFile(filename string, src any) error {
	e.name = filename
	globals, err := starlark.ExecFile(e.thread("exec "+filename), filename, src, nil)
	if err != nil {
		return fmt.Errorf("executing filter script %s: %w", filename, err)
	}
	globals.Freeze()
	e.globals = globals
	e.logger.Debug("filter script loaded", "script", filename, "filters", len(e.Filters()))
	return nil
}

// ExecString executes a filter script held in memory.
func (e *Evaluator) ExecString(script string) error {
	return e.ExecFile("<script>", script)
}

// Filters returns one filter per public top-level function.
func (e *Evaluator) Filters() tmpl.Filters {
	filters := tmpl.Filters{}
	for name, v := range e.globals {
		fn, ok := v.(starlark.Callable)
		if !ok || !exported(name) {
			continue
		}
		filters[name] = e.filter(name, fn)
	}
	return filters
}

func (e *Evaluator) filter(name string, fn starlark.Callable) tmpl.FilterFunc {
	return func(val tmpl.Value, args []tmpl.Value) (tmpl.Value, error) {
		callArgs := make(starlark.Tuple, 0, len(args)+1)
		callArgs = append(callArgs, ToStarlark(val))
		for _, a := range args {
			callArgs = append(callArgs, ToStarlark(a))
		}
		res, err := starlark.Call(e.thread("filter "+name), fn, callArgs, nil)
		if err != nil {
			if evalErr, ok := err.(*starlark.EvalError); ok {
				return nil, fmt.Errorf("%s", evalErr.Backtrace())
			}
			return nil, err
		}
		out, err := FromStarlark(res)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
		return out, nil
	}
}

// Globals returns the public non-callable values defined by the script.
func (e *Evaluator) Globals() tmpl.DictValue {
	out := tmpl.DictValue{}
	for name, v := range e.globals {
		if _, ok := v.(starlark.Callable); ok || !exported(name) {
			continue
		}
		val, err := FromStarlark(v)
		if err != nil {
			e.logger.Warn("skipping script global", "script", e.name, "name", name, "error", err)
			continue
		}
		out[name] = val
	}
	return out
}

// Names lists the filters defined by the script, sorted.
func (e *Evaluator) Names() []string {
	var names []string
	for name := range e.Filters() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func exported(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}
