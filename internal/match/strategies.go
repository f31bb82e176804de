package match

import (
	"strings"

	"relink/internal/catalog"
	"relink/internal/textutil"
)

const (
	methodExact      = "exact"
	methodVariant    = "variant"
	methodDescriptor = "descriptor"
	methodContains   = "contains"
	methodPrefix     = "prefix"
	methodWords      = "words"
	methodFuzzy      = "fuzzy"
	methodSKU        = "sku"
	methodID         = "id"
)

// hit is one strategy's vote for the entry at pos.
type hit struct {
	pos        int
	confidence int
	method     string
}

// form is a slug-shaped string with its derived comparison keys.
type form struct {
	text       string
	words      []string
	meaningful []string
	stripped   string
}

func newForm(text string) form {
	return form{
		text:       text,
		words:      textutil.SlugWords(text),
		meaningful: catalog.MeaningfulWords(text),
		stripped:   catalog.StripDescriptors(text),
	}
}

// query is a form plus whether it came from free text (name-oriented) rather
// than a link slug.
type query struct {
	form
	byName bool
}

// strategy is one independent matcher over the precomputed catalog forms.
type strategy func(c *corpus, q query, p Policy) []hit

// corpus pairs the index with the precomputed forms of every entry key
// (slug first, then the slugified name when it differs).
type corpus struct {
	idx   *catalog.Index
	forms [][]form
}

func newCorpus(idx *catalog.Index) *corpus {
	c := &corpus{idx: idx, forms: make([][]form, idx.Len())}
	for pos := 0; pos < idx.Len(); pos++ {
		slug := idx.Entry(pos).Slug
		keys := []form{newForm(slug)}
		if name := idx.NameSlug(pos); name != "" && name != slug {
			keys = append(keys, newForm(name))
		}
		c.forms[pos] = keys
	}
	return c
}

// isExactKey reports whether q is already an exact hit for pos, which the
// weaker strategies leave to exactMatch.
func (c *corpus) isExactKey(pos int, q query) bool {
	if q.text == c.idx.Entry(pos).Slug {
		return true
	}
	return q.byName && q.text == c.idx.NameSlug(pos)
}

func collect(hits map[int]int, pos, confidence int) {
	if confidence > hits[pos] {
		hits[pos] = confidence
	}
}

func toHits(best map[int]int, method string) []hit {
	out := make([]hit, 0, len(best))
	for pos, confidence := range best {
		out = append(out, hit{pos: pos, confidence: confidence, method: method})
	}
	return out
}

// exactMatch looks the query up in the slug map, and for name-oriented
// queries also in the normalized name map.
func exactMatch(c *corpus, q query, p Policy) []hit {
	best := map[int]int{}
	if pos, ok := c.idx.SlugPosition(q.text); ok {
		collect(best, pos, p.ExactConfidence)
	}
	if q.byName {
		for _, pos := range c.idx.NamePositions(q.text) {
			collect(best, pos, p.ExactConfidence)
		}
	}
	return toHits(best, methodExact)
}

// variantMatch strips pack counters, articles and distributor prefixes from
// the query and re-runs the exact lookups.
func variantMatch(c *corpus, q query, p Policy) []hit {
	best := map[int]int{}
	for _, variant := range catalog.SlugVariants(q.text, c.idx.SlugPrefixes()) {
		if pos, ok := c.idx.SlugPosition(variant); ok && !c.isExactKey(pos, q) {
			collect(best, pos, p.VariantConfidence)
		}
		if q.byName {
			for _, pos := range c.idx.NamePositions(variant) {
				if !c.isExactKey(pos, q) {
					collect(best, pos, p.VariantConfidence)
				}
			}
		}
	}
	return toHits(best, methodVariant)
}

// descriptorMatch compares query and catalog with trailing colors, sizes and
// variant adjectives removed from both sides.
func descriptorMatch(c *corpus, q query, p Policy) []hit {
	best := map[int]int{}
	for _, pos := range c.idx.StrippedPositions(q.stripped) {
		if c.isExactKey(pos, q) {
			continue
		}
		collect(best, pos, p.DescriptorConfidence)
	}
	return toHits(best, methodDescriptor)
}

// ContainmentConfidence scores a whole-word substring relation between two
// slugs. It returns 0 when neither contains the other, when the shorter is
// trivially short, or when the length ratio is below the policy minimum.
func ContainmentConfidence(a, b string, p Policy) int {
	p = p.normalized()
	if a == "" || b == "" || a == b {
		return 0
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < p.ContainMinLength {
		return 0
	}
	if !strings.Contains("-"+long+"-", "-"+short+"-") {
		return 0
	}
	ratio := float64(len(short)) / float64(len(long))
	if ratio < p.ContainMinRatio {
		return 0
	}
	return scale(ratio, p.ContainMinRatio, p.ContainFloor, p.ContainCeiling)
}

func containsMatch(c *corpus, q query, p Policy) []hit {
	best := map[int]int{}
	if len(q.text) < p.ContainMinLength {
		return nil
	}
	for pos, keys := range c.forms {
		if c.isExactKey(pos, q) {
			continue
		}
		for _, key := range keys {
			collect(best, pos, ContainmentConfidence(q.text, key.text, p))
		}
	}
	return toHits(nonZero(best), methodContains)
}

// PrefixRunConfidence scores the run of leading words two slugs share. At
// least PrefixMinWords must match; the score grows with the run length and
// with how much of the shorter slug the run covers.
func PrefixRunConfidence(a, b []string, p Policy) int {
	p = p.normalized()
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	if n < p.PrefixMinWords || (n == len(a) && n == len(b)) {
		return 0
	}
	coverage := float64(n) / float64(min(len(a), len(b)))
	confidence := 55 + int(roundHalfUp(30*coverage)) + 2*min(n, 5)
	return min(confidence, p.PrefixCeiling)
}

func prefixMatch(c *corpus, q query, p Policy) []hit {
	if len(q.words) < p.PrefixMinWords {
		return nil
	}
	best := map[int]int{}
	for pos, keys := range c.forms {
		if c.isExactKey(pos, q) {
			continue
		}
		for _, key := range keys {
			collect(best, pos, PrefixRunConfidence(q.words, key.words, p))
		}
	}
	return toHits(nonZero(best), methodPrefix)
}

// OverlapConfidence scores the shared meaningful words of two token sets.
// At least OverlapMinTokens must be shared and the overlap must exceed
// OverlapMinRatio of the larger set.
func OverlapConfidence(a, b []string, p Policy) int {
	p = p.normalized()
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, word := range b {
		set[word] = struct{}{}
	}
	overlap := 0
	for _, word := range a {
		if _, ok := set[word]; ok {
			overlap++
		}
	}
	if overlap < p.OverlapMinTokens {
		return 0
	}
	ratio := float64(overlap) / float64(max(len(a), len(b)))
	if ratio <= p.OverlapMinRatio {
		return 0
	}
	return scale(ratio, p.OverlapMinRatio, p.OverlapFloor, p.OverlapCeiling)
}

func wordsMatch(c *corpus, q query, p Policy) []hit {
	if len(q.meaningful) < p.OverlapMinTokens {
		return nil
	}
	best := map[int]int{}
	for _, pos := range c.idx.WordCandidates(q.meaningful) {
		if c.isExactKey(pos, q) {
			continue
		}
		for _, key := range c.forms[pos] {
			collect(best, pos, OverlapConfidence(q.meaningful, key.meaningful, p))
		}
	}
	return toHits(nonZero(best), methodWords)
}

// FuzzyConfidence returns round(similarity*100) for the better of the raw and
// descriptor-stripped comparisons, or 0 below the policy minimum. A perfect
// score is capped below 100 since only exactMatch may claim certainty.
func FuzzyConfidence(a, b form, p Policy) int {
	p = p.normalized()
	sim := boundedSimilarity(a.text, b.text, p.FuzzyMinSimilarity)
	if a.stripped != a.text || b.stripped != b.text {
		sim = max(sim, boundedSimilarity(a.stripped, b.stripped, p.FuzzyMinSimilarity))
	}
	if sim < p.FuzzyMinSimilarity {
		return 0
	}
	return min(int(roundHalfUp(sim*100)), 99)
}

// boundedSimilarity skips the edit-distance computation when the length
// difference alone rules out reaching floor.
func boundedSimilarity(a, b string, floor float64) float64 {
	la, lb := len(a), len(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	if float64(abs(la-lb))/float64(longest) > 1-floor {
		return 0
	}
	return textutil.Similarity(a, b)
}

func fuzzyMatch(c *corpus, q query, p Policy) []hit {
	best := map[int]int{}
	for pos, keys := range c.forms {
		if c.isExactKey(pos, q) {
			continue
		}
		for _, key := range keys {
			collect(best, pos, FuzzyConfidence(q.form, key, p))
		}
	}
	return toHits(nonZero(best), methodFuzzy)
}

func nonZero(best map[int]int) map[int]int {
	for pos, confidence := range best {
		if confidence <= 0 {
			delete(best, pos)
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
