package defaults

import (
	"strings"
	"testing"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"github.com/google/go-cmp/cmp"
)

func TestNames(t *testing.T) {
	want := []string{
		"components/price.html",
		"error.html",
		"layout.html",
		"partials/footer.html",
		"partials/header.html",
		"partials/pagination.html",
	}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestEveryTemplateResolves(t *testing.T) {
	e := tmpl.New(tmpl.Options{Loader: Loader()})
	for _, name := range Names() {
		if _, err := e.Resolve(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestErrorPage(t *testing.T) {
	e := tmpl.New(tmpl.Options{Loader: Loader()})
	out, err := e.Render("error.html", map[string]any{
		"status":       404,
		"message":      "No such product.",
		"shop_name":    "Acme",
		"menu":         []map[string]any{{"url": "/", "label": "Home"}, {"url": "/sale", "label": "Sale"}},
		"current_path": "/sale",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<title>404 Acme</title>",
		"<h1>404</h1>",
		"<p>No such product.</p>",
		`<a href="/sale" aria-current="page">Sale</a>`,
		"&copy;  Acme</footer>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPagination(t *testing.T) {
	e := tmpl.New(tmpl.Options{Loader: Loader()})
	out, err := e.Render("partials/pagination.html", map[string]any{"pages": 3, "page": 2, "page_numbers": []int{1, 2, 3}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<nav class="pagination"><a href="?page=1">1</a><strong>2</strong><a href="?page=3">3</a></nav>`
	if out != want {
		t.Fatalf("got %q", out)
	}
	if out, _ := e.Render("partials/pagination.html", map[string]any{"pages": 1}); out != "" {
		t.Fatalf("single page rendered %q", out)
	}
}
