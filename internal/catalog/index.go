package catalog

import (
	"slices"
	"strings"

	"relink/internal/textutil"
)

// Options tunes index construction.
type Options struct {
	// SlugPrefixes lists distributor-style slug prefixes (without trailing
	// hyphen). Entries whose slug starts with one are also reachable by the
	// unprefixed form.
	SlugPrefixes []string
}

// Index is the read-only lookup structure built from a catalog snapshot.
type Index struct {
	entries    []Entry
	nameSlugs  []string
	stripped   []string
	byID       map[int64]int
	bySlug     map[string]int
	bySKU      map[string]int
	byName     map[string][]int
	byStripped map[string][]int
	words      map[string][]int
	prefixes   []string
}

// Load builds an Index in a single pass over entries. Malformed entries are
// skipped and counted; an input with no usable entry yields ErrEmptyCatalog.
func Load(entries []Entry, opts Options) (*Index, LoadStats, error) {
	var stats LoadStats
	idx := &Index{
		entries:    make([]Entry, 0, len(entries)),
		byID:       make(map[int64]int, len(entries)),
		bySlug:     make(map[string]int, len(entries)),
		bySKU:      make(map[string]int),
		byName:     make(map[string][]int),
		byStripped: make(map[string][]int),
		words:      make(map[string][]int),
		prefixes:   normalizePrefixes(opts.SlugPrefixes),
	}

	for _, entry := range entries {
		entry.Slug = strings.ToLower(strings.Trim(strings.TrimSpace(entry.Slug), "/"))
		entry.Name = textutil.CollapseSpace(entry.Name)
		if entry.ID <= 0 || entry.Slug == "" {
			stats.Skipped++
			continue
		}
		if _, dup := idx.byID[entry.ID]; dup {
			stats.Skipped++
			continue
		}
		if _, dup := idx.bySlug[entry.Slug]; dup {
			stats.Skipped++
			continue
		}
		if entry.Name == "" {
			entry.Name = strings.Join(textutil.SlugWords(entry.Slug), " ")
		}
		pos := len(idx.entries)
		idx.entries = append(idx.entries, entry)
		idx.byID[entry.ID] = pos
		idx.bySlug[entry.Slug] = pos
		if sku := strings.ToLower(strings.TrimSpace(entry.SKU)); sku != "" {
			if _, taken := idx.bySKU[sku]; !taken {
				idx.bySKU[sku] = pos
			}
		}
	}
	if len(idx.entries) == 0 {
		return nil, stats, ErrEmptyCatalog
	}
	stats.Loaded = len(idx.entries)

	idx.nameSlugs = make([]string, len(idx.entries))
	idx.stripped = make([]string, len(idx.entries))
	for pos, entry := range idx.entries {
		nameSlug := textutil.Slugify(entry.Name)
		idx.nameSlugs[pos] = nameSlug
		if nameSlug != "" {
			idx.byName[nameSlug] = append(idx.byName[nameSlug], pos)
		}

		stripped := StripDescriptors(entry.Slug)
		idx.stripped[pos] = stripped
		idx.byStripped[stripped] = appendUnique(idx.byStripped[stripped], pos)
		if nameSlug != "" {
			if strippedName := StripDescriptors(nameSlug); strippedName != stripped {
				idx.byStripped[strippedName] = appendUnique(idx.byStripped[strippedName], pos)
			}
		}

		for _, key := range idx.secondaryKeys(entry.Slug) {
			if owner, taken := idx.bySlug[key]; taken {
				if owner != pos {
					stats.Collisions++
				}
				continue
			}
			idx.bySlug[key] = pos
			stats.SecondaryKeys++
		}

		for _, word := range MeaningfulWords(entry.Slug + "-" + nameSlug) {
			idx.words[word] = append(idx.words[word], pos)
		}
	}
	return idx, stats, nil
}

func (idx *Index) secondaryKeys(slug string) []string {
	var keys []string
	if trimmed := StripPrefix(slug, idx.prefixes); trimmed != slug {
		keys = append(keys, trimmed)
	}
	if trimmed := StripPrefix(slug, leadingArticles); trimmed != slug {
		keys = append(keys, trimmed)
	}
	return keys
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		prefix = strings.Trim(strings.ToLower(strings.TrimSpace(prefix)), "-")
		if prefix != "" && !slices.Contains(out, prefix) {
			out = append(out, prefix)
		}
	}
	return out
}

func appendUnique(list []int, pos int) []int {
	if slices.Contains(list, pos) {
		return list
	}
	return append(list, pos)
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Entry returns the entry at position pos.
func (idx *Index) Entry(pos int) Entry { return idx.entries[pos] }

// NameSlug returns the slugified name of the entry at position pos.
func (idx *Index) NameSlug(pos int) string { return idx.nameSlugs[pos] }

// StrippedSlug returns the descriptor-stripped slug of the entry at pos.
func (idx *Index) StrippedSlug(pos int) string { return idx.stripped[pos] }

// SlugPrefixes returns the distributor prefixes the index was built with.
func (idx *Index) SlugPrefixes() []string { return slices.Clone(idx.prefixes) }

// ByID looks up an entry by catalog identifier.
func (idx *Index) ByID(id int64) (Entry, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[pos], true
}

// BySlug looks up an entry by exact slug, including secondary prefix keys.
func (idx *Index) BySlug(slug string) (Entry, bool) {
	pos, ok := idx.SlugPosition(slug)
	if !ok {
		return Entry{}, false
	}
	return idx.entries[pos], true
}

// SlugPosition is BySlug returning the entry position.
func (idx *Index) SlugPosition(slug string) (int, bool) {
	pos, ok := idx.bySlug[strings.ToLower(strings.Trim(slug, "/"))]
	return pos, ok
}

// BySKU looks up an entry by stock keeping unit, case-insensitively.
func (idx *Index) BySKU(sku string) (Entry, bool) {
	pos, ok := idx.bySKU[strings.ToLower(strings.TrimSpace(sku))]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[pos], true
}

// NamePositions returns the entries whose slugified name equals nameSlug.
func (idx *Index) NamePositions(nameSlug string) []int {
	return idx.byName[nameSlug]
}

// StrippedPositions returns the entries whose descriptor-stripped slug or name
// equals stripped.
func (idx *Index) StrippedPositions(stripped string) []int {
	return idx.byStripped[stripped]
}

// WordCandidates returns, in ascending position order, every entry sharing at
// least one indexed word with words.
func (idx *Index) WordCandidates(words []string) []int {
	seen := make(map[int]struct{})
	for _, word := range words {
		for _, pos := range idx.words[word] {
			seen[pos] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	slices.Sort(out)
	return out
}
