package match

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"relink/internal/catalog"
	"relink/internal/signals"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	idx, _, err := catalog.Load([]catalog.Entry{
		{ID: 9001, Name: "Red Vibe Deluxe", Slug: "red-vibe-deluxe", SKU: "RV-1"},
		{ID: 9002, Name: "Acme Silk Wand", Slug: "acme-silk-wand", SKU: "SW-1"},
		{ID: 9003, Name: "The Velvet Rabbit Massager", Slug: "the-velvet-rabbit-massager"},
		{ID: 9004, Name: "Pocket Bullet Vibrator", Slug: "pocket-bullet-vibrator"},
		{ID: 9005, Name: "Midnight Lace Bodysuit", Slug: "midnight-lace-bodysuit"},
		{ID: 9006, Name: "Midnight Lace Teddy", Slug: "midnight-lace-teddy"},
	}, catalog.Options{SlugPrefixes: []string{"acme"}})
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewEngine(idx, DefaultPolicy())
}

type ranked struct {
	ID         int64
	Confidence int
	Method     string
}

func flatten(suggestions []Suggestion) []ranked {
	out := make([]ranked, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, ranked{ID: s.Entry.ID, Confidence: s.Confidence, Method: s.Method})
	}
	return out
}

func TestRankStrategies(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		name string
		sig  signals.Signals
		want []ranked
	}{
		{
			name: "descriptor and containment agree",
			sig:  signals.Signals{NearbySlug: "red-vibe"},
			want: []ranked{{9001, 95, "descriptor+contains"}},
		},
		{
			name: "exact slug",
			sig:  signals.Signals{NearbySlug: "pocket-bullet-vibrator"},
			want: []ranked{{9004, 100, "exact"}},
		},
		{
			name: "pack counter and distributor prefix",
			sig:  signals.Signals{NearbySlug: "silk-wand-3-pack"},
			want: []ranked{{9002, 99, "variant+words"}},
		},
		{
			name: "reordered words",
			sig:  signals.Signals{NearbySlug: "lace-midnight-bodysuit"},
			want: []ranked{{9005, 98, "words"}, {9006, 66, "words"}},
		},
		{
			name: "shared leading words",
			sig:  signals.Signals{NearbySlug: "midnight-lace-bodysuit-with-garters"},
			want: []ranked{{9005, 96, "contains+prefix+words"}},
		},
		{
			name: "misspelled slug falls through to fuzzy",
			sig:  signals.Signals{NearbySlug: "pocket-bulet-vibrater"},
			want: []ranked{{9004, 91, "fuzzy"}},
		},
		{
			name: "caption names the product",
			sig:  signals.Signals{CaptionText: "The Velvet Rabbit Massager"},
			want: []ranked{{9003, 100, "caption:exact"}},
		},
		{
			name: "slug and alt text agree",
			sig:  signals.Signals{NearbySlug: "red-vibe", ImageAltText: "Red Vibe Deluxe"},
			want: []ranked{{9001, 100, "descriptor+contains+alt:exact"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := flatten(engine.Rank(tc.sig))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Rank mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankWithoutContextIsEmpty(t *testing.T) {
	engine := testEngine(t)
	if got := engine.Rank(signals.Signals{}); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %+v", got)
	}
}

func TestRankIgnoresNoiseSignals(t *testing.T) {
	engine := testEngine(t)
	for _, sig := range []signals.Signals{
		{LinkText: "Click here"},
		{LinkText: "Buy Now!"},
		{CaptionText: "Red"},
		{HeadingText: "Black XL"},
		{ImageFilenameToken: "set"},
	} {
		if got := engine.Rank(sig); len(got) != 0 {
			t.Fatalf("signals %+v: expected no suggestions, got %+v", sig, got)
		}
	}
}

func TestRankBoundsAndOrdering(t *testing.T) {
	engine := testEngine(t)
	inputs := []signals.Signals{
		{NearbySlug: "midnight-lace"},
		{NearbySlug: "midnight"},
		{NearbySlug: "velvet-rabbit"},
		{LinkText: "Midnight Lace Teddy in black", HeadingText: "Lace bodysuits"},
		{ImageAltText: "pocket bullet", NearbySlug: "bullet-vibrator-pink"},
		{NearbySlug: "lace-teddy-midnight-large"},
	}
	for _, sig := range inputs {
		got := engine.Rank(sig)
		if len(got) > engine.Policy().MaxSuggestions {
			t.Fatalf("signals %+v: %d suggestions exceeds limit", sig, len(got))
		}
		for i, s := range got {
			if s.Confidence < 0 || s.Confidence > 100 {
				t.Fatalf("signals %+v: confidence %d out of range", sig, s.Confidence)
			}
			if s.Method == "" {
				t.Fatalf("signals %+v: empty method", sig)
			}
			if i > 0 && got[i-1].Confidence < s.Confidence {
				t.Fatalf("signals %+v: suggestions not sorted: %+v", sig, got)
			}
		}
	}
}

func TestRankSkipsFuzzyWhenStrongHitExists(t *testing.T) {
	engine := testEngine(t)
	got := engine.Rank(signals.Signals{NearbySlug: "midnight-lace-bodysuit-black"})
	if len(got) == 0 || got[0].Entry.ID != 9005 {
		t.Fatalf("expected 9005 first, got %+v", got)
	}
	for _, s := range got {
		if strings.Contains(s.Method, methodFuzzy) {
			t.Fatalf("fuzzy ran despite strong hit: %+v", got)
		}
	}
}

func TestRankTiesBreakByCatalogID(t *testing.T) {
	idx, _, err := catalog.Load([]catalog.Entry{
		{ID: 20, Name: "Lace Teddy Black", Slug: "lace-teddy-black"},
		{ID: 10, Name: "Lace Teddy Red", Slug: "lace-teddy-red"},
	}, catalog.Options{})
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	got := NewEngine(idx, DefaultPolicy()).Rank(signals.Signals{NearbySlug: "lace-teddy"})
	if len(got) != 2 {
		t.Fatalf("expected two suggestions, got %+v", got)
	}
	if got[0].Confidence != got[1].Confidence || got[0].Entry.ID != 10 {
		t.Fatalf("expected tie ordered by id, got %+v", got)
	}
}

func TestAutoApprovable(t *testing.T) {
	engine := testEngine(t)
	if !engine.AutoApprovable(engine.SuggestFromSlug("red-vibe")) {
		t.Fatal("expected red-vibe to auto approve")
	}
	if engine.AutoApprovable(nil) {
		t.Fatal("empty suggestions must not auto approve")
	}
	if engine.AutoApprovable([]Suggestion{{Confidence: 84}}) {
		t.Fatal("84 must not auto approve")
	}
}

func TestSuggestFromFreeText(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		input  string
		wantID int64
		method string
	}{
		{"SW-1", 9002, "sku"},
		{"9003", 9003, "id"},
		{"Pocket Bullet Vibrator", 9004, "exact"},
		{"velvet rabbit", 9003, "contains+words"},
	}
	for _, tc := range tests {
		got := engine.SuggestFromFreeText(tc.input)
		if len(got) == 0 {
			t.Fatalf("%q: no suggestions", tc.input)
		}
		if got[0].Entry.ID != tc.wantID || got[0].Method != tc.method {
			t.Fatalf("%q: got %d via %q, want %d via %q", tc.input, got[0].Entry.ID, got[0].Method, tc.wantID, tc.method)
		}
	}
	if got := engine.SuggestFromFreeText("   "); got != nil {
		t.Fatalf("blank input: expected nil, got %+v", got)
	}
}
