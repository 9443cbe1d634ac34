package tmpl

import (
	"errors"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	e := New(Options{
		Loader: MemoryLoader{
			"loop.html":  `{% include "loop.html" %}`,
			"child.html": `{% extends "gone.html" %}`,
		},
		Dispatcher: DispatcherFunc(func(call Call) (string, error) {
			return "", errors.New("handler failed")
		}),
	})
	cases := []struct {
		name  string
		src   string
		match func(error) bool
	}{
		{"lex", "{{ 'open", func(err error) bool {
			var target *LexError
			return errors.As(err, &target)
		}},
		{"parse", "{% block a %}{% endblock %}{% block a %}{% endblock %}", func(err error) bool {
			var target *ParseError
			return errors.As(err, &target) && target.Kind == DuplicateBlock
		}},
		{"resolution", `{% include "child.html" %}`, func(err error) bool {
			var target *ResolutionError
			return errors.As(err, &target) && target.Kind == TemplateNotFound
		}},
		{"expression", "{{ 1 / 0 }}", func(err error) bool {
			var target *ExpressionError
			return errors.As(err, &target) && target.Kind == DivisionByZero
		}},
		{"include", `{% include "loop.html" %}`, func(err error) bool {
			var target *IncludeError
			return errors.As(err, &target) && target.Kind == MaxDepthExceeded
		}},
		{"dispatch", `{% component "card" %}`, func(err error) bool {
			var target *DispatchError
			return errors.As(err, &target) && target.Kind == CallComponent
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.RenderString("t", tc.src, nil)
			if !tc.match(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}
}
