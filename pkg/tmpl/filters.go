package tmpl

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"
)

// FilterFunc is a pure post-processing function applied to a value.
type FilterFunc func(val Value, args []Value) (Value, error)

// Filters is a registry of filter functions.
type Filters map[string]FilterFunc

// Merge returns a new registry holding f and then every entry of others,
// later registries overriding earlier ones.
func (f Filters) Merge(others ...Filters) Filters {
	out := make(Filters, len(f))
	for k, fn := range f {
		out[k] = fn
	}
	for _, o := range others {
		for k, fn := range o {
			out[k] = fn
		}
	}
	return out
}

// DefaultFilters provides the filters every theme can rely on.
func DefaultFilters() Filters {
	return Filters{
		"upper":  stringFilter("upper", strings.ToUpper),
		"lower":  stringFilter("lower", strings.ToLower),
		"trim":   stringFilter("trim", strings.TrimSpace),
		"escape": stringFilter("escape", html.EscapeString),
		"default": func(val Value, args []Value) (Value, error) {
			if len(args) < 1 || val.Truth() {
				return val, nil
			}
			return args[0], nil
		},
		"join": func(val Value, args []Value) (Value, error) {
			list, ok := val.(ListValue)
			if !ok {
				return nil, typeMismatch("join expects a list, got %s", typeName(val))
			}
			sep := ""
			if len(args) > 0 {
				sep = args[0].String()
			}
			parts := make([]string, len(list))
			for i, it := range list {
				parts[i] = it.String()
			}
			return StringValue(strings.Join(parts, sep)), nil
		},
		"length": func(val Value, _ []Value) (Value, error) {
			switch t := val.(type) {
			case StringValue:
				return IntValue(utf8.RuneCountInString(string(t))), nil
			case ListValue:
				return IntValue(len(t)), nil
			case DictValue:
				return IntValue(len(t)), nil
			}
			return nil, typeMismatch("length expects a string or collection, got %s", typeName(val))
		},
		"truncate": func(val Value, args []Value) (Value, error) {
			s, err := concreteString("truncate", val)
			if err != nil {
				return nil, err
			}
			if len(args) < 1 {
				return nil, fmt.Errorf("truncate requires a length argument")
			}
			n, ok := args[0].(IntValue)
			if !ok || n < 0 {
				return nil, typeMismatch("truncate length must be a non-negative int, got %s", typeName(args[0]))
			}
			runes := []rune(s)
			if len(runes) <= int(n) {
				return StringValue(s), nil
			}
			suffix := ""
			if len(args) > 1 {
				suffix = args[1].String()
			}
			return StringValue(string(runes[:n]) + suffix), nil
		},
		"replace": func(val Value, args []Value) (Value, error) {
			s, err := concreteString("replace", val)
			if err != nil {
				return nil, err
			}
			if len(args) != 2 {
				return nil, fmt.Errorf("replace takes 2 arguments, got %d", len(args))
			}
			return StringValue(strings.ReplaceAll(s, args[0].String(), args[1].String())), nil
		},
		"first": func(val Value, _ []Value) (Value, error) { return edge(val, true) },
		"last":  func(val Value, _ []Value) (Value, error) { return edge(val, false) },
		"abs": func(val Value, _ []Value) (Value, error) {
			i, f, isFloat, ok := number(val)
			switch {
			case !ok:
				return nil, typeMismatch("abs expects a number, got %s", typeName(val))
			case isFloat:
				return FloatValue(math.Abs(f)), nil
			case i < 0:
				return IntValue(-i), nil
			}
			return val, nil
		},
		"round": func(val Value, args []Value) (Value, error) {
			_, f, _, ok := number(val)
			if !ok {
				return nil, typeMismatch("round expects a number, got %s", typeName(val))
			}
			precision := IntValue(0)
			if len(args) > 0 {
				if precision, ok = args[0].(IntValue); !ok {
					return nil, typeMismatch("round precision must be int, got %s", typeName(args[0]))
				}
			}
			scale := math.Pow(10, float64(precision))
			return FloatValue(math.Round(f*scale) / scale), nil
		},
		"json": func(val Value, _ []Value) (Value, error) {
			if isUndefined(val) {
				return nil, typeMismatch("json expects a value, got %s", typeName(val))
			}
			b, err := json.Marshal(ToGo(val))
			if err != nil {
				return nil, err
			}
			return StringValue(b), nil
		},
	}
}

// stringFilter adapts a string function into a filter that rejects
// undefined input.
func stringFilter(name string, fn func(string) string) FilterFunc {
	return func(val Value, _ []Value) (Value, error) {
		s, err := concreteString(name, val)
		if err != nil {
			return nil, err
		}
		return StringValue(fn(s)), nil
	}
}

func concreteString(filter string, val Value) (string, error) {
	switch val.(type) {
	case Undefined, ListValue, DictValue:
		return "", typeMismatch("%s expects a string, got %s", filter, typeName(val))
	}
	return val.String(), nil
}

func edge(val Value, first bool) (Value, error) {
	switch t := val.(type) {
	case ListValue:
		if len(t) == 0 {
			return Undefined{}, nil
		}
		if first {
			return t[0], nil
		}
		return t[len(t)-1], nil
	case StringValue:
		r := []rune(string(t))
		if len(r) == 0 {
			return StringValue(""), nil
		}
		if first {
			return StringValue(r[0]), nil
		}
		return StringValue(r[len(r)-1]), nil
	}
	return nil, typeMismatch("expected a list or string, got %s", typeName(val))
}
