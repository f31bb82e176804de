package shortcode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestGrammar(t *testing.T) *Grammar {
	t.Helper()
	g, err := NewGrammar([]string{"product", "add_to_cart"}, []string{"/product/", "shop"}, "/product/")
	if err != nil {
		t.Fatalf("NewGrammar returned error: %v", err)
	}
	return g
}

func TestNewGrammarRequiresKinds(t *testing.T) {
	if _, err := NewGrammar([]string{" ", ""}, nil, ""); err == nil {
		t.Fatal("expected error for empty kinds")
	}
}

func TestFindAll(t *testing.T) {
	g := newTestGrammar(t)
	body := `<p>Buy [product id="500"] or [add_to_cart style="x" id='501' show_price="no"] ` +
		`and [product id=502]. Ignore [product_page id="1"], [product sku="9"], ` +
		`[product data-id="7"] and [product id=""].</p>`

	got := g.FindAll(body)
	want := []struct{ kind, id, raw string }{
		{"product", "500", `[product id="500"]`},
		{"add_to_cart", "501", `[add_to_cart style="x" id='501' show_price="no"]`},
		{"product", "502", `[product id=502]`},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Kind != w.kind || got[i].LegacyID != w.id || got[i].Raw != w.raw {
			t.Errorf("token %d = %+v, want %+v", i, got[i], w)
		}
		if body[got[i].Start:got[i].End] != got[i].Raw {
			t.Errorf("token %d offsets do not match raw text", i)
		}
	}
}

func TestCanonicalPreservesAttributes(t *testing.T) {
	g := newTestGrammar(t)
	tests := []struct {
		raw  string
		want string
	}{
		{`[product id="500"]`, `[product id="9001"]`},
		{`[add_to_cart style="x" id='501' show_price="no"]`, `[add_to_cart style="x" id="9001" show_price="no"]`},
		{`[product id=502]`, `[product id="9001"]`},
		{`not a token`, `not a token`},
	}
	for _, tt := range tests {
		if got := g.Canonical(tt.raw, 9001); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRewriteDirectives(t *testing.T) {
	g := newTestGrammar(t)
	body := `[product id="500"] text [product id="600"] [add_to_cart id="500"]`
	got, n := g.RewriteDirectives(body, map[string]int64{"500": 9001})
	if n != 2 {
		t.Fatalf("expected 2 rewrites, got %d", n)
	}
	want := `[product id="9001"] text [product id="600"] [add_to_cart id="9001"]`
	if got != want {
		t.Fatalf("unexpected body:\n got %q\nwant %q", got, want)
	}

	again, n := g.RewriteDirectives(got, map[string]int64{"500": 9001})
	if n != 0 || again != got {
		t.Fatalf("expected second rewrite to be a no-op, got %d changes", n)
	}
}

func TestCatalogLink(t *testing.T) {
	g := newTestGrammar(t)
	tests := []struct {
		href     string
		wantPath string
		wantSlug string
		wantOK   bool
	}{
		{"/product/red-vibe/", "/product/red-vibe/", "red-vibe", true},
		{"https://old.example.com/product/Red-Vibe?ref=1", "/product/Red-Vibe/", "red-vibe", true},
		{"/en/shop/silk-wand/reviews/", "/en/shop/silk-wand/", "silk-wand", true},
		{"/product/", "", "", false},
		{"/blog/post-1/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		path, slug, ok := g.CatalogLink(tt.href)
		if path != tt.wantPath || slug != tt.wantSlug || ok != tt.wantOK {
			t.Errorf("CatalogLink(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.href, path, slug, ok, tt.wantPath, tt.wantSlug, tt.wantOK)
		}
	}
}

func TestCatalogLinks(t *testing.T) {
	g := newTestGrammar(t)
	markup := `<a href="/blog/x/">blog</a><a HREF='/product/one/'>one</a><a href="/shop/two">two</a>`
	var slugs []string
	for _, link := range g.CatalogLinks(markup) {
		slugs = append(slugs, link.Slug)
	}
	if diff := cmp.Diff([]string{"one", "two"}, slugs); diff != "" {
		t.Fatalf("CatalogLinks mismatch (-want +got):\n%s", diff)
	}
}

func TestReplacePathRespectsBoundaries(t *testing.T) {
	body := `<a href="/product/red-vibe/">a</a> <a href="/product/red-vibe">b</a> ` +
		`<a href="/product/red-vibe?x=1">c</a> <a href="/product/red-vibe-deluxe/">d</a>`
	got, n := ReplacePath(body, "/product/red-vibe/", "/product/red-vibe-deluxe/")
	if n != 3 {
		t.Fatalf("expected 3 replacements, got %d", n)
	}
	want := `<a href="/product/red-vibe-deluxe/">a</a> <a href="/product/red-vibe-deluxe/">b</a> ` +
		`<a href="/product/red-vibe-deluxe/?x=1">c</a> <a href="/product/red-vibe-deluxe/">d</a>`
	if got != want {
		t.Fatalf("unexpected body:\n got %q\nwant %q", got, want)
	}

	again, n := ReplacePath(got, "/product/red-vibe/", "/product/red-vibe-deluxe/")
	if n != 0 || again != got {
		t.Fatalf("expected idempotent replacement, got %d changes", n)
	}
}

func TestNewPathRuleSkipsIdentity(t *testing.T) {
	if _, ok := NewPathRule("/product/a/", "/product/a"); ok {
		t.Fatal("expected identical paths to produce no rule")
	}
	if _, ok := NewPathRule("", "/product/a/"); ok {
		t.Fatal("expected empty path to produce no rule")
	}
}

func TestCanonicalPath(t *testing.T) {
	g := newTestGrammar(t)
	if got := g.CanonicalPath("red-vibe-deluxe"); got != "/product/red-vibe-deluxe/" {
		t.Fatalf("CanonicalPath = %q", got)
	}
}
