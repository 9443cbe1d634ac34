// Package filters provides the theme filters beyond the engine defaults:
// markdown rendering, human readable numbers and sizes, and title casing.
package filters

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Extended returns the extended filter set. Merge it over
// tmpl.DefaultFilters to use it.
func Extended() tmpl.Filters {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	title := cases.Title(language.Und)

	return tmpl.Filters{
		"markdown": func(val tmpl.Value, _ []tmpl.Value) (tmpl.Value, error) {
			src, err := text("markdown", val)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				return nil, fmt.Errorf("converting markdown: %w", err)
			}
			return tmpl.StringValue(buf.String()), nil
		},
		// filesize(binary=false) formats a byte count, in SI or IEC units.
		"filesize": func(val tmpl.Value, args []tmpl.Value) (tmpl.Value, error) {
			n, ok := val.(tmpl.IntValue)
			if !ok {
				f, isFloat := val.(tmpl.FloatValue)
				if !isFloat {
					return nil, fmt.Errorf("filesize expects a number, got %s", kind(val))
				}
				n = tmpl.IntValue(f)
			}
			if n < 0 {
				return nil, fmt.Errorf("filesize expects a non-negative size, got %d", n)
			}
			if len(args) > 0 && args[0].Truth() {
				return tmpl.StringValue(humanize.IBytes(uint64(n))), nil
			}
			return tmpl.StringValue(humanize.Bytes(uint64(n))), nil
		},
		// number inserts thousands separators.
		"number": func(val tmpl.Value, _ []tmpl.Value) (tmpl.Value, error) {
			switch v := val.(type) {
			case tmpl.IntValue:
				return tmpl.StringValue(humanize.Comma(int64(v))), nil
			case tmpl.FloatValue:
				return tmpl.StringValue(humanize.Commaf(float64(v))), nil
			}
			return nil, fmt.Errorf("number expects a number, got %s", kind(val))
		},
		"ordinal": func(val tmpl.Value, _ []tmpl.Value) (tmpl.Value, error) {
			n, ok := val.(tmpl.IntValue)
			if !ok {
				return nil, fmt.Errorf("ordinal expects an int, got %s", kind(val))
			}
			return tmpl.StringValue(humanize.Ordinal(int(n))), nil
		},
		"title": func(val tmpl.Value, _ []tmpl.Value) (tmpl.Value, error) {
			s, err := text("title", val)
			if err != nil {
				return nil, err
			}
			return tmpl.StringValue(title.String(s)), nil
		},
	}
}

func text(filter string, val tmpl.Value) (string, error) {
	switch val.(type) {
	case tmpl.Undefined, tmpl.ListValue, tmpl.DictValue:
		return "", fmt.Errorf("%s expects a string, got %s", filter, kind(val))
	}
	return val.String(), nil
}

func kind(val tmpl.Value) string {
	switch v := val.(type) {
	case tmpl.Undefined:
		return "undefined " + v.Name
	case tmpl.NoneValue:
		return "none"
	}
	return fmt.Sprintf("%T", val)
}
