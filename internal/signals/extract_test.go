package signals

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"relink/internal/shortcode"
)

func newTestExtractor(t *testing.T, lookbehind, lookahead int) *Extractor {
	t.Helper()
	g, err := shortcode.NewGrammar([]string{"product"}, []string{"/product/"}, "/product/")
	if err != nil {
		t.Fatalf("NewGrammar returned error: %v", err)
	}
	return NewExtractor(g, lookbehind, lookahead)
}

func TestExtractNearestSignals(t *testing.T) {
	body := `<h2>Old Heading</h2><a href="/product/old-thing/">Old thing</a>` +
		`<h3>Our &amp; Favourite  Toys</h3>` +
		`[caption id="attachment_1"]<img src="/uploads/red-vibe-deluxe-300x200.jpg" alt="Red Vibe">The <b>Red</b> Vibe[/caption]` +
		`<p>Check out the <a href="https://old.example.com/product/red-vibe/?ref=2">Red Vibe</a> today.</p>` +
		`[product id="500"]`
	offset := strings.Index(body, `[product id="500"]`)

	got := newTestExtractor(t, 0, 0).Extract(body, offset)
	want := Signals{
		NearbyPath:         "/product/red-vibe/",
		NearbySlug:         "red-vibe",
		ImageAltText:       "Red Vibe",
		ImageFilenameToken: "red-vibe-deluxe",
		CaptionText:        "The Red Vibe",
		HeadingText:        "Our & Favourite Toys",
		LinkText:           "Red Vibe",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Extract mismatch (-want +got):\n%s", diff)
	}
	if got.Count() != 6 {
		t.Fatalf("expected 6 signals (path counts once), got %d", got.Count())
	}
}

func TestExtractNoContextReturnsZeroValue(t *testing.T) {
	body := `Plain text with no markup at all. [product id="700"]`
	got := newTestExtractor(t, 0, 0).Extract(body, strings.Index(body, "[product"))
	if !got.Empty() {
		t.Fatalf("expected empty signals, got %+v", got)
	}
	if got != (Signals{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestExtractRespectsLookbehindWindow(t *testing.T) {
	body := `<a href="/product/far-away/">Far away</a>` + strings.Repeat(" ", 200) + `[product id="1"]`
	offset := strings.Index(body, "[product")

	near := newTestExtractor(t, 100, 10).Extract(body, offset)
	if near.NearbySlug != "" || near.LinkText != "" {
		t.Fatalf("expected link outside window to be ignored, got %+v", near)
	}
	far := newTestExtractor(t, 1000, 10).Extract(body, offset)
	if far.NearbySlug != "far-away" {
		t.Fatalf("expected link inside window, got %+v", far)
	}
}

func TestExtractFallsBackToLookahead(t *testing.T) {
	body := `[product id="1"] <figcaption>Silk Wand</figcaption> <a href="/cart/">Silk wand link</a>`
	got := newTestExtractor(t, 0, 0).Extract(body, 0)
	if got.CaptionText != "Silk Wand" {
		t.Fatalf("expected caption from lookahead, got %q", got.CaptionText)
	}
	if got.LinkText != "Silk wand link" {
		t.Fatalf("expected link text from lookahead, got %q", got.LinkText)
	}
	if got.HeadingText != "" {
		t.Fatalf("headings are only taken from before the token, got %q", got.HeadingText)
	}
}

func TestExtractClampsOffsetsAndRunes(t *testing.T) {
	body := "ééééé<a href=\"/product/crème/\">Crème</a>[product id=\"1\"]"
	e := newTestExtractor(t, 40, 3)
	got := e.Extract(body, strings.Index(body, "[product"))
	if got.NearbySlug != "crème" {
		t.Fatalf("expected slug from window, got %+v", got)
	}
	_ = e.Extract(body, -5)
	_ = e.Extract(body, len(body)+10)
}

func TestFilenameToken(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"/wp-content/uploads/2019/02/Red-Vibe-Deluxe-1024x768.jpg", "red-vibe-deluxe"},
		{"https://cdn.example.com/silk_wand-scaled.png?ver=2", "silk-wand"},
		{"silk-wand-2.jpeg", "silk-wand"},
		{"IMG_1234.JPG", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FilenameToken(tt.src); got != tt.want {
			t.Errorf("FilenameToken(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestInnerText(t *testing.T) {
	got := InnerText(`<img src="x.jpg"> The <em>Red</em>&nbsp;Vibe [product id="1"] `)
	if got != "The Red Vibe" {
		t.Fatalf("InnerText = %q", got)
	}
}
