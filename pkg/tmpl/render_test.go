package tmpl

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func render(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	out, err := New(Options{}).RenderString("test", src, data)
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}
	return out
}

func TestRenderSimple(t *testing.T) {
	src := "Hello {{ name | upper | default('Anon') }}!"
	if out := render(t, src, map[string]any{"name": "world"}); out != "Hello WORLD!" {
		t.Fatalf("got %q", out)
	}
	if out := render(t, "Hello {{ name | default('Anon') }}!", nil); out != "Hello Anon!" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderConditionals(t *testing.T) {
	src := "{% if count > 0 %}has items{% else %}empty{% endif %}"
	if out := render(t, src, map[string]any{"count": 0}); out != "empty" {
		t.Fatalf("count=0 got %q", out)
	}
	if out := render(t, src, map[string]any{"count": 3}); out != "has items" {
		t.Fatalf("count=3 got %q", out)
	}

	chain := "{% if a %}A{% elseif b %}B{% elif c %}C{% else %}D{% endif %}"
	cases := []struct {
		data map[string]any
		want string
	}{
		{map[string]any{"a": true, "b": true}, "A"},
		{map[string]any{"b": 1, "c": true}, "B"},
		{map[string]any{"c": "yes"}, "C"},
		{map[string]any{"a": "", "b": 0, "c": []int{}}, "D"},
	}
	for _, tc := range cases {
		if out := render(t, chain, tc.data); out != tc.want {
			t.Fatalf("%v: got %q, want %q", tc.data, out, tc.want)
		}
	}
}

func TestRenderTruthiness(t *testing.T) {
	falsy := []any{0, 0.0, "", []string{}, map[string]any{}, nil, false}
	for _, v := range falsy {
		if out := render(t, "{% if v %}T{% else %}F{% endif %}", map[string]any{"v": v}); out != "F" {
			t.Fatalf("%#v should be falsy", v)
		}
	}
	truthy := []any{1, -0.5, "0", []int{0}, map[string]any{"k": nil}, true, struct{}{}}
	for _, v := range truthy {
		if out := render(t, "{% if v %}T{% else %}F{% endif %}", map[string]any{"v": v}); out != "T" {
			t.Fatalf("%#v should be truthy", v)
		}
	}
	if out := render(t, "{% if missing.deep %}T{% else %}F{% endif %}", nil); out != "F" {
		t.Fatalf("undefined should be falsy, got %q", out)
	}
}

func TestRenderLoops(t *testing.T) {
	src := "{% for item in items %}{{ item }},{% else %}nothing{% endfor %}"
	if out := render(t, src, map[string]any{"items": []string{"a", "b", "c"}}); out != "a,b,c," {
		t.Fatalf("got %q", out)
	}
	if out := render(t, src, map[string]any{"items": []string{}}); out != "nothing" {
		t.Fatalf("empty got %q", out)
	}
	for _, v := range []any{nil, 42, "abc"} {
		if out := render(t, src, map[string]any{"items": v}); out != "nothing" {
			t.Fatalf("%#v: non-collection got %q", v, out)
		}
	}
	if out := render(t, src, nil); out != "nothing" {
		t.Fatalf("undefined got %q", out)
	}
}

func TestRenderLoopMappingAndLoopVariable(t *testing.T) {
	data := map[string]any{"prices": map[string]any{"tea": 3, "coffee": 4, "water": 1}}
	src := "{% for price, name in prices %}{{ loop.index }}:{{ name }}={{ price }}{% if not loop.last %};{% endif %}{% endfor %}"
	if out := render(t, src, data); out != "1:coffee=4;2:tea=3;3:water=1" {
		t.Fatalf("got %q", out)
	}
	src = "{% for x, i in xs %}{{ i }}{{ x }}{% if loop.first %}^{% endif %}{{ loop.length }} {% endfor %}"
	if out := render(t, src, map[string]any{"xs": []string{"a", "b"}}); out != "0a^2 1b2 " {
		t.Fatalf("got %q", out)
	}
}

func TestRenderScopeLayers(t *testing.T) {
	src := "{% set x = 'outer' %}{% for i in [1, 2] %}{% set x = i %}{{ x }}{% endfor %}|{{ x }}"
	if out := render(t, src, nil); out != "12|outer" {
		t.Fatalf("got %q", out)
	}
	// The caller's context is never modified.
	data := map[string]any{"x": "orig"}
	if out := render(t, "{% set x = 'changed' %}{{ x }}", data); out != "changed" {
		t.Fatalf("got %q", out)
	}
	if data["x"] != "orig" {
		t.Fatalf("context mutated: %v", data["x"])
	}
}

func TestRenderLeniencyForMissingValues(t *testing.T) {
	cases := []string{
		"{{ missing.key }}",
		"{{ missing }}",
		"{{ user.address.street }}",
		"{{ items[5] }}",
		"{{ user['nope'] }}",
	}
	data := map[string]any{"user": map[string]any{"name": "Ann"}, "items": []int{1}}
	for _, src := range cases {
		if out := render(t, src, data); out != "" {
			t.Fatalf("%s: got %q", src, out)
		}
	}
}

func TestRenderExpressions(t *testing.T) {
	data := map[string]any{
		"n":     7,
		"price": 2.5,
		"name":  "Ann",
		"tags":  []string{"new", "sale"},
		"user":  map[string]any{"roles": []string{"admin"}},
		"items": []map[string]any{{"sku": "A1"}, {"sku": "B2"}},
	}
	cases := []struct {
		src  string
		want string
	}{
		{"{{ n + 1 }}", "8"},
		{"{{ n - 10 }}", "-3"},
		{"{{ n * price }}", "17.5"},
		{"{{ n / 2 }}", "3.5"},
		{"{{ 8 / 2 }}", "4"},
		{"{{ n % 4 }}", "3"},
		{"{{ -n }}", "-7"},
		{"{{ 2 + 3 * 4 }}", "14"},
		{"{{ (2 + 3) * 4 }}", "20"},
		{"{{ 'Hi ' + name }}", "Hi Ann"},
		{"{{ name ~ '#' ~ n }}", "Ann#7"},
		{"{{ (tags + ['hot']) | join('/') }}", "new/sale/hot"},
		{"{{ 'sale' in tags }}", "true"},
		{"{{ 'old' not in tags }}", "true"},
		{"{{ 'nn' in 'Ann' }}", "true"},
		{"{{ 'roles' in user }}", "true"},
		{"{{ 'admin' in user.roles }}", "true"},
		{"{{ n == 7.0 }}", "true"},
		{"{{ name != 'Bob' and n >= 7 }}", "true"},
		{"{{ missing == none }}", "true"},
		{"{{ missing or 'fallback' }}", "fallback"},
		{"{{ name and n }}", "7"},
		{"{{ items[1].sku }}", "B2"},
		{"{{ items.0.sku }}", "A1"},
		{"{{ tags[-1] }}", "sale"},
		{"{{ user['roles'][0] }}", "admin"},
		{`{{ {"a": 1}.a }}`, "1"},
		{"{{ 'b' < 'c' }}", "true"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			if out := render(t, tc.src, data); out != tc.want {
				t.Fatalf("got %q, want %q", out, tc.want)
			}
		})
	}
}

func TestRenderStructFields(t *testing.T) {
	type product struct {
		Name  string
		Price float64 `json:"unit_price"`
		Tags  []string
	}
	data := map[string]any{"p": &product{Name: "Lamp", Price: 9.5, Tags: []string{"home"}}}
	if out := render(t, "{{ p.name }} {{ p.unit_price }} {{ p.Tags | first }}", data); out != "Lamp 9.5 home" {
		t.Fatalf("got %q", out)
	}
}

// tagSet is a caller-defined Value whose dynamic type is not comparable.
type tagSet []string

func (t tagSet) String() string { return strings.Join(t, ",") }
func (t tagSet) Truth() bool    { return len(t) > 0 }

func TestRenderCompareUncomparableValues(t *testing.T) {
	data := map[string]any{"a": tagSet{"sale"}, "b": tagSet{"sale"}, "items": []any{tagSet{"sale"}}}
	cases := map[string]string{
		"{% if a == b %}eq{% else %}ne{% endif %}":           "ne",
		"{% if a != b %}ne{% endif %}":                       "ne",
		"{% if a in items %}in{% else %}out{% endif %}":      "out",
		"{% if a not in items %}out{% endif %}":              "out",
		"{% if a == 'sale' %}eq{% else %}{{ a }}{% endif %}": "sale",
	}
	for src, want := range cases {
		if out := render(t, src, data); out != want {
			t.Fatalf("%s: got %q, want %q", src, out, want)
		}
	}
}

func TestRenderFilters(t *testing.T) {
	if out := render(t, `{{ "hello" | upper | truncate(3) }}`, nil); out != "HEL" {
		t.Fatalf("got %q", out)
	}
	custom := DefaultFilters().Merge(Filters{
		"reverse": func(val Value, _ []Value) (Value, error) {
			r := []rune(val.String())
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return StringValue(r), nil
		},
	})
	out, err := New(Options{Filters: custom}).RenderString("t", "{{ 'abc' | reverse | upper }}", nil)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "CBA" {
		t.Fatalf("got %q", out)
	}
	if out := render(t, "{% set s = 'a,b' | replace(',', ';') %}{{ s }}", nil); out != "a;b" {
		t.Fatalf("filtered set got %q", out)
	}
}

func TestRenderExpressionErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind ExpressionErrorKind
		line int
	}{
		{"unknown filter", "{{ x | nope }}", UnknownFilter, 1},
		{"undefined arithmetic", "{{ missing + 1 }}", TypeMismatch, 1},
		{"undefined ordering", "\n{% if missing > 0 %}{% endif %}", TypeMismatch, 2},
		{"undefined into string filter", "{{ missing | upper }}", TypeMismatch, 1},
		{"mixed types", "{{ 'a' - 1 }}", TypeMismatch, 1},
		{"undefined in string", "{{ missing in 'abc' }}", TypeMismatch, 1},
		{"division by zero", "{{ 1 / 0 }}", DivisionByZero, 1},
		{"modulo by zero", "{{ 5 % zero }}", DivisionByZero, 1},
		{"float division by zero", "{{ 1.5 / 0.0 }}", DivisionByZero, 1},
		{"filter failure", "{{ 'x' | replace('a') }}", FilterFailed, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(Options{}).RenderString("page", tc.src, map[string]any{"x": "v", "zero": 0})
			var exprErr *ExpressionError
			if !errors.As(err, &exprErr) {
				t.Fatalf("want *ExpressionError, got %v", err)
			}
			if exprErr.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q (%v)", exprErr.Kind, tc.kind, err)
			}
			if exprErr.Template != "page" || exprErr.Pos.Line != tc.line {
				t.Fatalf("error location %s:%d, want page:%d", exprErr.Template, exprErr.Pos.Line, tc.line)
			}
		})
	}
}

func TestRenderInclude(t *testing.T) {
	e := New(Options{Loader: MemoryLoader{
		"page":    `<{% include "partial" %}|{% include "partial" with {"who": "guest", "n": n + 1} %}|{{ who }}>`,
		"partial": `{{ who }}{{ n }}{% set who = "leak" %}`,
	}})
	out, err := e.Render("page", map[string]any{"who": "user", "n": 1})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "<user1|guest2|user>" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderIncludeErrors(t *testing.T) {
	e := New(Options{Loader: MemoryLoader{
		"self":    `x{% include "self" %}`,
		"badwith": `{% include "self" with [1] %}`,
		"missing": `{% include "nowhere" %}`,
	}})

	_, err := e.Render("self", nil)
	var incErr *IncludeError
	if !errors.As(err, &incErr) || incErr.Kind != MaxDepthExceeded {
		t.Fatalf("want MaxDepthExceeded, got %v", err)
	}
	if incErr.Name != "self" || incErr.Depth != DefaultMaxIncludeDepth+1 {
		t.Fatalf("got %+v", incErr)
	}

	_, err = e.Render("badwith", nil)
	var exprErr *ExpressionError
	if !errors.As(err, &exprErr) || exprErr.Kind != TypeMismatch {
		t.Fatalf("want TypeMismatch, got %v", err)
	}

	_, err = e.Render("missing", nil)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) || resErr.Kind != TemplateNotFound {
		t.Fatalf("want TemplateNotFound, got %v", err)
	}
}

func TestRenderIncludeDepthOption(t *testing.T) {
	e := New(Options{MaxIncludeDepth: 3, Loader: MemoryLoader{
		"a": `a{% include "b" %}`,
		"b": `b{% include "c" %}`,
		"c": `c{% include "d" %}`,
		"d": `d`,
	}})
	if out, err := e.Render("a", nil); err != nil || out != "abcd" {
		t.Fatalf("got %q, %v", out, err)
	}
	if _, err := e.RenderNested("a", nil, 1); err == nil {
		t.Fatalf("expected depth error when starting nested")
	}
}

func TestRenderComponentsAndHooks(t *testing.T) {
	var calls []Call
	d := DispatcherFunc(func(call Call) (string, error) {
		calls = append(calls, call)
		switch {
		case call.Kind == CallComponent && call.Name == "product.card":
			return fmt.Sprintf("<card %s>", lookupAttr(call.Data, "id", "id")), nil
		case call.Kind == CallHook:
			return "", nil
		}
		return "", errors.New("no such component")
	})
	e := New(Options{Dispatcher: d})
	out, err := e.RenderString("page", `[{% component "product.card" {"id": pid} %}{% hook header.after %}]`, map[string]any{"pid": 9})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "[<card 9>]" {
		t.Fatalf("got %q", out)
	}
	if len(calls) != 2 || calls[1].Name != "header.after" || calls[1].Depth != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	if _, ok := calls[1].Data.(NoneValue); !ok {
		t.Fatalf("hook without data got %#v", calls[1].Data)
	}

	_, err = e.RenderString("page", `{% component missing %}`, nil)
	var disErr *DispatchError
	if !errors.As(err, &disErr) || disErr.Kind != CallComponent || disErr.Name != "missing" {
		t.Fatalf("want DispatchError, got %v", err)
	}
}

func TestRenderWithoutDispatcher(t *testing.T) {
	if out := render(t, "a{% hook footer %}b", nil); out != "ab" {
		t.Fatalf("got %q", out)
	}
	_, err := New(Options{}).RenderString("t", "{% component x %}", nil)
	var disErr *DispatchError
	if !errors.As(err, &disErr) {
		t.Fatalf("want DispatchError, got %v", err)
	}
}

func TestRenderDeterministic(t *testing.T) {
	e := New(Options{Loader: MemoryLoader{
		"page": `{% for k, v in m %}{{ v }}={{ k }};{% endfor %}`,
	}})
	data := map[string]any{"m": map[string]any{"z": 1, "a": 2, "m": 3, "b": 4}}
	first, err := e.Render("page", data)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	for i := 0; i < 20; i++ {
		out, err := e.Render("page", data)
		if err != nil || out != first {
			t.Fatalf("run %d: got %q, %v, want %q", i, out, err, first)
		}
	}
}

func TestRenderRawAndTrim(t *testing.T) {
	src := "<ul>\n  {%- for x in xs %}\n  <li>{{ x }}</li>\n  {%- endfor %}\n</ul>{% raw %}{{ kept }}{% endraw %}"
	want := "<ul>\n  <li>1</li>\n  <li>2</li>\n</ul>{{ kept }}"
	if out := render(t, src, map[string]any{"xs": []int{1, 2}}); out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRenderLogsUndefinedValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := New(Options{Logger: logger}).RenderString("page", "{{ customer.name }}", nil); err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(buf.String(), "name=customer.name") {
		t.Fatalf("log = %q", buf.String())
	}
}

func TestTemplateString(t *testing.T) {
	ts := TemplateString("Hi {{ name | title_case }}")
	if err := ts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := TemplateString("{% if %}").Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ts.Render(nil, map[string]any{"name": "x"}); err == nil {
		t.Fatalf("expected unknown filter error")
	}
	out, err := TemplateString("Hi {{ name }}").Render(nil, map[string]any{"name": "Ann"})
	if err != nil || out != "Hi Ann" {
		t.Fatalf("got %q, %v", out, err)
	}
}
