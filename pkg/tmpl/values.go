package tmpl

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Value is a value seen by templates. It defines string conversion and
// truthiness semantics.
type Value interface {
	String() string
	Truth() bool
}

// LookupHook can be implemented by Value containers that resolve
// attributes themselves, for example lazily computed shop objects.
type LookupHook interface {
	OnLookup(key string) (Value, bool)
}

// Undefined is the result of looking up a name or path that does not
// exist. It prints as the empty string and is falsy; operators and filters
// that need a concrete value reject it.
type Undefined struct {
	Name string
}

func (Undefined) String() string { return "" }
func (Undefined) Truth() bool    { return false }

// NoneValue represents an explicit absence of a value (none, Go nil).
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }

// IntValue wraps an integer (64-bit).
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return i != 0 }

// FloatValue wraps a float (64-bit).
type FloatValue float64

func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'f', -1, 64) }
func (f FloatValue) Truth() bool    { return f != 0 }

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return s != "" }

// ListValue wraps a list of values.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
func (l ListValue) Truth() bool { return len(l) > 0 }

// DictValue wraps a string-keyed mapping of values. Iteration visits keys
// in sorted order.
type DictValue map[string]Value

func (d DictValue) String() string { return "{...}" }
func (d DictValue) Truth() bool    { return len(d) > 0 }

// Keys returns the keys of d in sorted order.
func (d DictValue) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// structValue exposes the exported fields of a Go struct. Field names
// match case-insensitively, json tag names match exactly.
type structValue struct {
	v reflect.Value
}

func (s structValue) String() string { return fmt.Sprint(s.v.Interface()) }
func (s structValue) Truth() bool    { return true }

func (s structValue) OnLookup(key string) (Value, bool) {
	t := s.v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == key || strings.EqualFold(f.Name, key) {
			return FromGo(s.v.Field(i).Interface()), true
		}
	}
	return nil, false
}

var (
	_ Value      = structValue{}
	_ LookupHook = structValue{}
)

// NewContextFromAny converts a map[string]any into a Value mapping.
func NewContextFromAny(m map[string]any) DictValue {
	ctx := make(DictValue, len(m))
	for k, v := range m {
		ctx[k] = FromGo(v)
	}
	return ctx
}

// fromUint keeps values beyond the int64 range as floats.
func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return FloatValue(u)
	}
	return IntValue(u)
}

// FromGo converts a Go value to a Value. Slices and arrays become
// ListValue, maps become DictValue (keys formatted with fmt), structs
// expose their exported fields.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(t)
	case int8:
		return IntValue(t)
	case int16:
		return IntValue(t)
	case int32:
		return IntValue(t)
	case int64:
		return IntValue(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return IntValue(t)
	case uint16:
		return IntValue(t)
	case uint32:
		return IntValue(t)
	case uint64:
		return fromUint(t)
	case float32:
		return FloatValue(t)
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(t)
	case time.Time:
		return StringValue(t.Format(time.RFC3339))
	case map[string]any:
		return NewContextFromAny(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return NoneValue{}
		}
		out := make(ListValue, rv.Len())
		for i := range out {
			out[i] = FromGo(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return NoneValue{}
		}
		out := make(DictValue, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out[fmt.Sprint(it.Key().Interface())] = FromGo(it.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Struct:
		return structValue{v: rv}
	}
	if s, ok := v.(fmt.Stringer); ok {
		return StringValue(s.String())
	}
	return StringValue(fmt.Sprint(v))
}

// ToGo converts a Value back to plain Go data: nil, bool, int64, float64,
// string, []any and map[string]any. Values of unknown types convert to
// their string form.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, Undefined, NoneValue:
		return nil
	case BoolValue:
		return bool(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case StringValue:
		return string(t)
	case ListValue:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = ToGo(it)
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, it := range t {
			out[k] = ToGo(it)
		}
		return out
	case structValue:
		return t.v.Interface()
	}
	return v.String()
}

// isUndefined reports whether v is Undefined.
func isUndefined(v Value) bool {
	_, ok := v.(Undefined)
	return ok
}

// typeName describes v in error messages.
func typeName(v Value) string {
	switch t := v.(type) {
	case Undefined:
		if t.Name != "" {
			return "undefined (" + t.Name + ")"
		}
		return "undefined"
	case NoneValue:
		return "none"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case ListValue:
		return "list"
	case DictValue:
		return "mapping"
	}
	return fmt.Sprintf("%T", v)
}

// lookupAttr resolves one step of a dotted path. Missing steps yield
// Undefined rather than an error.
func lookupAttr(v Value, key string, path string) Value {
	switch t := v.(type) {
	case DictValue:
		if it, ok := t[key]; ok {
			return it
		}
	case ListValue:
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(t) {
			return t[i]
		}
	case LookupHook:
		if it, ok := t.OnLookup(key); ok && it != nil {
			return it
		}
	}
	return Undefined{Name: path}
}

// iterate returns the items of a collection along with their keys. It
// reports false when v is not a collection.
func iterate(v Value) (items, keys []Value, ok bool) {
	switch t := v.(type) {
	case ListValue:
		keys = make([]Value, len(t))
		for i := range t {
			keys[i] = IntValue(i)
		}
		return t, keys, true
	case DictValue:
		names := t.Keys()
		items = make([]Value, len(names))
		keys = make([]Value, len(names))
		for i, k := range names {
			items[i] = t[k]
			keys[i] = StringValue(k)
		}
		return items, keys, true
	}
	return nil, nil, false
}
