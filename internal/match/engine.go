package match

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"relink/internal/catalog"
	"relink/internal/signals"
	"relink/internal/textutil"
)

// Suggestion is one ranked candidate target. Suggestions are recomputed on
// demand and never persisted.
type Suggestion struct {
	Entry      catalog.Entry `json:"entry"`
	Confidence int           `json:"confidence"`
	Method     string        `json:"method"`
}

// pipeline is the fixed priority order of the non-fuzzy strategies.
var pipeline = []strategy{
	exactMatch,
	variantMatch,
	descriptorMatch,
	containsMatch,
	prefixMatch,
	wordsMatch,
}

// ctaPhrases are link texts that say nothing about the product.
var ctaPhrases = map[string]struct{}{
	"buy-now": {}, "shop-now": {}, "order-now": {}, "buy-it-now": {}, "click-here": {},
	"learn-more": {}, "read-more": {}, "see-more": {}, "more-info": {}, "view-product": {},
	"view-details": {}, "add-to-cart": {}, "check-it-out": {}, "get-it-here": {},
	"buy-here": {}, "shop-here": {}, "see-it-here": {}, "details": {}, "purchase": {},
}

// Engine ranks catalog entries for context signals. It is immutable and safe
// for concurrent use.
type Engine struct {
	corpus *corpus
	policy Policy
}

// NewEngine binds a policy to a catalog index.
func NewEngine(idx *catalog.Index, policy Policy) *Engine {
	return &Engine{corpus: newCorpus(idx), policy: policy.normalized()}
}

// Index returns the catalog index the engine ranks against.
func (e *Engine) Index() *catalog.Index { return e.corpus.idx }

// Policy returns the normalized policy in effect.
func (e *Engine) Policy() Policy { return e.policy }

// AutoApprovable reports whether the top suggestion clears the auto-approval
// threshold.
func (e *Engine) AutoApprovable(suggestions []Suggestion) bool {
	return len(suggestions) > 0 && suggestions[0].Confidence >= e.policy.AutoApproveThreshold
}

// Rank scores the catalog against every usable signal and returns at most
// MaxSuggestions suggestions in non-increasing confidence order.
func (e *Engine) Rank(sig signals.Signals) []Suggestion {
	type labelled struct {
		q      query
		prefix string
	}
	var queries []labelled
	if slug := textutil.Slugify(sig.NearbySlug); slug != "" {
		queries = append(queries, labelled{q: query{form: newForm(slug)}})
	}
	for _, text := range sig.Texts() {
		q, ok := e.textQuery(text.Value)
		if !ok {
			continue
		}
		queries = append(queries, labelled{q: q, prefix: text.Name + ":"})
	}

	var hits []hit
	for _, lq := range queries {
		hits = append(hits, e.run(lq.q, lq.prefix)...)
	}
	if bestConfidence(hits) < e.policy.FuzzyGate {
		for _, lq := range queries {
			hits = append(hits, prefixed(fuzzyMatch(e.corpus, lq.q, e.policy), lq.prefix)...)
		}
	}
	return e.merge(hits)
}

// SuggestFromSlug ranks the catalog against a bare link slug.
func (e *Engine) SuggestFromSlug(slug string) []Suggestion {
	return e.Rank(signals.Signals{NearbySlug: slug})
}

// SuggestFromFreeText ranks the catalog against operator-entered text. SKUs
// and numeric catalog ids resolve directly; everything else runs the
// name-oriented strategies without the noise filters applied to page text.
func (e *Engine) SuggestFromFreeText(text string) []Suggestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var hits []hit
	idx := e.corpus.idx
	if entry, ok := idx.BySKU(text); ok {
		pos, _ := idx.SlugPosition(entry.Slug)
		hits = append(hits, hit{pos: pos, confidence: e.policy.ExactConfidence, method: methodSKU})
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		if entry, ok := idx.ByID(id); ok {
			pos, _ := idx.SlugPosition(entry.Slug)
			hits = append(hits, hit{pos: pos, confidence: e.policy.ExactConfidence, method: methodID})
		}
	}
	if slug := textutil.Slugify(text); slug != "" {
		q := query{form: newForm(slug), byName: true}
		hits = append(hits, e.run(q, "")...)
		if bestConfidence(hits) < e.policy.FuzzyGate {
			hits = append(hits, fuzzyMatch(e.corpus, q, e.policy)...)
		}
	}
	return e.merge(hits)
}

// textQuery turns a text signal into a name-oriented query, rejecting short
// signals, calls to action, and text made only of generic words.
func (e *Engine) textQuery(value string) (query, bool) {
	value = textutil.CollapseSpace(value)
	if utf8.RuneCountInString(value) < e.policy.MinSignalLength {
		return query{}, false
	}
	slug := textutil.Slugify(value)
	if slug == "" {
		return query{}, false
	}
	if _, cta := ctaPhrases[slug]; cta {
		return query{}, false
	}
	q := query{form: newForm(slug), byName: true}
	if len(q.meaningful) == 0 {
		return query{}, false
	}
	return q, true
}

func (e *Engine) run(q query, prefix string) []hit {
	var hits []hit
	for _, s := range pipeline {
		hits = append(hits, prefixed(s(e.corpus, q, e.policy), prefix)...)
	}
	return hits
}

func prefixed(hits []hit, prefix string) []hit {
	if prefix == "" {
		return hits
	}
	for i := range hits {
		hits[i].method = prefix + hits[i].method
	}
	return hits
}

func bestConfidence(hits []hit) int {
	best := 0
	for _, h := range hits {
		best = max(best, h.confidence)
	}
	return best
}

// merge folds hits on the same entry into one suggestion. Agreement between
// two or more methods adds AgreementBoost, capped at AgreementCap, without
// ever lowering a higher single score.
func (e *Engine) merge(hits []hit) []Suggestion {
	type agg struct {
		best    int
		methods []string
	}
	byPos := make(map[int]*agg)
	for _, h := range hits {
		if h.confidence <= 0 {
			continue
		}
		a, ok := byPos[h.pos]
		if !ok {
			a = &agg{}
			byPos[h.pos] = a
		}
		a.best = max(a.best, h.confidence)
		if !slices.Contains(a.methods, h.method) {
			a.methods = append(a.methods, h.method)
		}
	}

	out := make([]Suggestion, 0, len(byPos))
	for pos, a := range byPos {
		confidence := a.best
		if len(a.methods) > 1 && confidence < e.policy.AgreementCap {
			confidence = min(confidence+e.policy.AgreementBoost, e.policy.AgreementCap)
		}
		slices.SortStableFunc(a.methods, func(x, y string) int {
			return cmp.Compare(methodRank(x), methodRank(y))
		})
		out = append(out, Suggestion{
			Entry:      e.corpus.idx.Entry(pos),
			Confidence: clampConfidence(confidence),
			Method:     strings.Join(a.methods, "+"),
		})
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})
	if len(out) > e.policy.MaxSuggestions {
		out = out[:e.policy.MaxSuggestions]
	}
	return out
}

// methodRank orders joined methods by pipeline priority, slug methods before
// text-signal methods.
func methodRank(method string) int {
	rank := 0
	if signal, base, ok := strings.Cut(method, ":"); ok {
		rank = 100 + 10*signalRank(signal)
		method = base
	}
	return rank + slices.Index(methodOrder, method)
}

var methodOrder = []string{
	methodSKU, methodID, methodExact, methodVariant, methodDescriptor,
	methodContains, methodPrefix, methodWords, methodFuzzy,
}

func signalRank(name string) int {
	switch name {
	case signals.NameCaption:
		return 0
	case signals.NameAltText:
		return 1
	case signals.NameLinkText:
		return 2
	case signals.NameHeading:
		return 3
	default:
		return 4
	}
}
