package catalog

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripDescriptors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"red-vibe-deluxe", "red-vibe"},
		{"red-vibe", "red-vibe"},
		{"wand-pink-xl", "wand"},
		{"black", "black"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripDescriptors(tt.in); got != tt.want {
			t.Errorf("StripDescriptors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeaningfulWords(t *testing.T) {
	got := MeaningfulWords("the-red-silk-wand-kit-xl-of-silk")
	if diff := cmp.Diff([]string{"silk", "wand"}, got); diff != "" {
		t.Fatalf("MeaningfulWords mismatch (-want +got):\n%s", diff)
	}
}

func TestSlugVariants(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		prefixes []string
		want     []string
	}{
		{"pack counter", "silk-wand-3-pack", nil, []string{"silk-wand"}},
		{"pack of", "silk-wand-pack-of-2", nil, []string{"silk-wand"}},
		{"duplicate counter", "silk-wand-2", nil, []string{"silk-wand"}},
		{"article", "the-silk-wand", nil, []string{"silk-wand"}},
		{"distributor", "acme-silk-wand", []string{"acme"}, []string{"silk-wand"}},
		{"combined", "acme-silk-wand-2pk", []string{"acme"}, []string{"acme-silk-wand", "silk-wand", "silk-wand-2pk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SlugVariants(tt.slug, tt.prefixes)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("SlugVariants(%q) = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}
