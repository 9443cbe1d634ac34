package starlark

import (
	"fmt"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"go.starlark.net/starlark"
)

// ToStarlark converts template data passed to a filter. Lists and dicts
// arrive frozen, so a filter cannot change the data of the page being
// rendered. Values resolving attributes themselves, such as products
// backed by Go structs, become read-only records.
func ToStarlark(val tmpl.Value) starlark.Value {
	switch v := val.(type) {
	case nil, tmpl.NoneValue, tmpl.Undefined:
		return starlark.None
	case tmpl.StringValue:
		return starlark.String(v)
	case tmpl.IntValue:
		return starlark.MakeInt64(int64(v))
	case tmpl.FloatValue:
		return starlark.Float(v)
	case tmpl.BoolValue:
		return starlark.Bool(v)
	case tmpl.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ToStarlark(item)
		}
		list := starlark.NewList(items)
		list.Freeze()
		return list
	case tmpl.DictValue:
		dict := starlark.NewDict(len(v))
		for _, key := range v.Keys() {
			// Cannot fail: string keys on a dict not yet frozen.
			_ = dict.SetKey(starlark.String(key), ToStarlark(v[key]))
		}
		dict.Freeze()
		return dict
	case tmpl.LookupHook:
		return record{val: val, hook: v}
	}
	return starlark.String(val.String())
}

// FromStarlark converts a filter result or script global back into
// template data. Any iterable becomes a list. Integers beyond the int64
// range become floats, as unsigned Go data does. Functions are rejected.
func FromStarlark(val starlark.Value) (tmpl.Value, error) {
	switch v := val.(type) {
	case nil, starlark.NoneType:
		return tmpl.NoneValue{}, nil
	case starlark.String:
		return tmpl.StringValue(v), nil
	case starlark.Bool:
		return tmpl.BoolValue(v), nil
	case starlark.Float:
		return tmpl.FloatValue(v), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return tmpl.IntValue(i), nil
		}
		return tmpl.FloatValue(v.Float()), nil
	case record:
		return v.val, nil
	case *starlark.Dict:
		dict := make(tmpl.DictValue, v.Len())
		for _, item := range v.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			elem, err := FromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			dict[key] = elem
		}
		return dict, nil
	case starlark.Callable:
		return nil, fmt.Errorf("cannot use %s %s as template data", v.Type(), v.Name())
	case starlark.Iterable:
		var list tmpl.ListValue
		it := v.Iterate()
		defer it.Done()
		var elem starlark.Value
		for it.Next(&elem) {
			item, err := FromStarlark(elem)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", len(list), err)
			}
			list = append(list, item)
		}
		return list, nil
	}
	return tmpl.StringValue(val.String()), nil
}

// record exposes a template value with attribute lookup to scripts, so
// that product.name works in a filter as it does in a template.
type record struct {
	val  tmpl.Value
	hook tmpl.LookupHook
}

var _ starlark.HasAttrs = record{}

func (r record) String() string        { return r.val.String() }
func (r record) Type() string          { return "record" }
func (r record) Freeze()               {}
func (r record) Truth() starlark.Bool  { return starlark.Bool(r.val.Truth()) }
func (r record) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: record") }

func (r record) Attr(name string) (starlark.Value, error) {
	if v, ok := r.hook.OnLookup(name); ok && v != nil {
		return ToStarlark(v), nil
	}
	// No such attribute.
	return nil, nil
}

func (r record) AttrNames() []string { return nil }
