package scan

import (
	"relink/internal/shortcode"
	"relink/internal/signals"
	"relink/internal/store"
)

// Occurrence is one directive sighting collapsed to its ledger key.
type Occurrence struct {
	ContentID int64
	Title     string
	LegacyID  string
	RawToken  string
	Signals   signals.Signals
}

// Collect finds every directive token in item and returns one occurrence per
// legacy id in order of first appearance. When a legacy id appears more than
// once, the sighting with the most context signals is kept.
func Collect(grammar *shortcode.Grammar, extractor *signals.Extractor, item store.ContentItem) []Occurrence {
	tokens := grammar.FindAll(item.Body)
	if len(tokens) == 0 {
		return nil
	}
	byID := make(map[string]int, len(tokens))
	out := make([]Occurrence, 0, len(tokens))
	for _, tok := range tokens {
		sig := extractor.Extract(item.Body, tok.Start)
		if pos, seen := byID[tok.LegacyID]; seen {
			if sig.Count() > out[pos].Signals.Count() {
				out[pos].RawToken = tok.Raw
				out[pos].Signals = sig
			}
			continue
		}
		byID[tok.LegacyID] = len(out)
		out = append(out, Occurrence{
			ContentID: item.ID,
			Title:     item.Title,
			LegacyID:  tok.LegacyID,
			RawToken:  tok.Raw,
			Signals:   sig,
		})
	}
	return out
}
