package tmpl

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTextAndPrint(t *testing.T) {
	tree, err := Parse("page", "Hello {{ name }}!")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Body) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(tree.Body))
	}
	if tn, ok := tree.Body[0].(*TextNode); !ok || tn.Text != "Hello " {
		t.Fatalf("node0 not Text('Hello '): %#v", tree.Body[0])
	}
	pn, ok := tree.Body[1].(*PrintNode)
	if !ok {
		t.Fatalf("node1 not Print: %#v", tree.Body[1])
	}
	if n, ok := pn.Expr.(*NameExpr); !ok || n.Name != "name" {
		t.Fatalf("print expr = %#v", pn.Expr)
	}
	if tn, ok := tree.Body[2].(*TextNode); !ok || tn.Text != "!" {
		t.Fatalf("node2 not Text('!'): %#v", tree.Body[2])
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3 == 7 and not false or x", "((((1 + (2 * 3)) == 7) and (not false)) or x)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a not in b", "(a not in b)"},
		{"not a in b", "(not (a in b))"},
		{"-a.b[0] ~ 'x'", `((-a.b[0]) ~ "x")`},
		{"a - b - c", "((a - b) - c)"},
		{"[1, 'two', {k: none}]", `[1, "two", {"k": none}]`},
		{"x | default('y') | upper", `(x | default("y") | upper)`},
		{"items.0.name", "items.0.name"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			tree, err := Parse("expr", "{% set v = "+tc.src+" %}")
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			set := tree.Body[0].(*SetNode)
			if got := FormatExpr(set.Expr); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParsePrintFilters(t *testing.T) {
	tree, err := Parse("page", `{{ "hello" | upper | truncate(3) }}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	pn := tree.Body[0].(*PrintNode)
	var names []string
	for _, f := range pn.Filters {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"upper", "truncate"}, names); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
	if len(pn.Filters[1].Args) != 1 {
		t.Fatalf("truncate args = %d", len(pn.Filters[1].Args))
	}
}

func TestParseStatements(t *testing.T) {
	src := `{% extends "base.html" %}
{% block content %}
  {% if a %}A{% elseif b %}B{% elif c %}C{% else %}D{% endif %}
  {% for k, v in m %}{{ k }}{% else %}none{% endfor %}
  {% include "part.html" with {"x": 1} %}
  {% component "product.card" {"id": 3} %}
  {% hook header.after %}
  {% block inner %}{% parent %}{{ parent() }}{% endblock inner %}
{% endblock %}`
	tree, err := Parse("child", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if tree.Parent != "base.html" {
		t.Fatalf("parent = %q", tree.Parent)
	}
	var blocks []string
	for _, b := range tree.Blocks {
		blocks = append(blocks, b.Name)
	}
	if diff := cmp.Diff([]string{"content", "inner"}, blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}

	want := `Template("child" extends "base.html")
  Extends("base.html")
  Text("\n")
  Block(content)
    Text("\n  ")
    If(a)
      Text("A")
    ElseIf(b)
      Text("B")
    ElseIf(c)
      Text("C")
    Else
      Text("D")
    Text("\n  ")
    For(k, v in m)
      Print(k)
    Else
      Text("none")
    Text("\n  ")
    Include("part.html" with {"x": 1})
    Text("\n  ")
    Component(product.card {"id": 3})
    Text("\n  ")
    Hook(header.after)
    Text("\n  ")
    Block(inner)
      Parent
      Parent
    Text("\n")
`
	if diff := cmp.Diff(want, Pretty(tree)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExtendsAfterWhitespaceAndComments(t *testing.T) {
	tree, err := Parse("child", "  {# leading comment #}\n{% extends 'base' %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if tree.Parent != "base" {
		t.Fatalf("parent = %q", tree.Parent)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind ParseErrorKind
	}{
		{"unclosed if", "{% if x %}a", UnmatchedTag},
		{"unclosed for", "{% for x in y %}a", UnmatchedTag},
		{"unclosed block", "{% block a %}a", UnmatchedTag},
		{"stray endif", "a{% endif %}", UnmatchedTag},
		{"stray else", "{% else %}", UnmatchedTag},
		{"mismatched endblock", "{% block a %}{% endblock b %}", UnmatchedTag},
		{"unknown tag", "{% frobnicate %}", UnknownTag},
		{"dangling operator", "{{ 1 + }}", InvalidExpression},
		{"empty print", "{{ }}", InvalidExpression},
		{"missing in", "{% for x items %}{% endfor %}", InvalidExpression},
		{"assign keyword", "{% set and = 1 %}", InvalidExpression},
		{"bad filter", "{{ x | 3 }}", InvalidExpression},
		{"extends after content", "a{% extends 'b' %}", MisplacedTag},
		{"extends in block", "{% block a %}{% extends 'b' %}{% endblock %}", MisplacedTag},
		{"second extends", "{% extends 'a' %}{% extends 'b' %}", MisplacedTag},
		{"duplicate block", "{% block a %}{% endblock %}{% block a %}{% endblock %}", DuplicateBlock},
		{"duplicate nested block", "{% block a %}{% block a %}{% endblock %}{% endblock %}", DuplicateBlock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad", tc.src)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("want *ParseError, got %v", err)
			}
			if parseErr.Kind != tc.kind {
				t.Fatalf("kind = %q, want %q (%v)", parseErr.Kind, tc.kind, err)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("page.html", "line\n{% if x %}\n{% endfor %}")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if parseErr.Pos.Line != 3 {
		t.Fatalf("line = %d, want 3", parseErr.Pos.Line)
	}
	if got, want := err.Error(), "page.html:3:4: parse error: unmatched tag: unexpected {% endfor %}"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}
