package catalog

import (
	"regexp"
	"slices"
	"strings"

	"relink/internal/textutil"
)

func wordSet(lists ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, word := range strings.Fields(list) {
			set[word] = struct{}{}
		}
	}
	return set
}

const (
	colorWords = `black white red blue green pink purple yellow orange grey gray silver gold
		clear nude brown beige ivory teal navy violet lavender magenta turquoise burgundy
		maroon coral rose aqua cream champagne bronze smoke frost frosted translucent`
	sizeWords = `xs xl xxl xxxl 2xl 3xl 4xl small medium large mini micro jumbo huge petite
		plus regular standard oz ml inch inches cm mm`
	genericNouns = `product products item items kit set sets pack packs bundle gift toy toys
		accessory accessories edition collection series sale new`
	variantAdjectives = `deluxe premium classic original pro max ultra limited special lite
		luxe luxury super extra edition version`
	fillerWords = `the and for with your from`
)

var (
	descriptorWords = wordSet(colorWords, sizeWords, variantAdjectives)
	stopWords       = wordSet(colorWords, sizeWords, genericNouns, fillerWords)
	leadingArticles = []string{"the", "a", "an"}
)

// IsStopWord reports whether word carries no identifying signal: colors,
// sizes, generic product nouns, filler, and anything of two characters or less.
func IsStopWord(word string) bool {
	if len(word) <= 2 {
		return true
	}
	_, ok := stopWords[word]
	return ok
}

// IsDescriptor reports whether word is a trailing color, size, or variant
// adjective that does not distinguish one product from another.
func IsDescriptor(word string) bool {
	_, ok := descriptorWords[word]
	return ok
}

// MeaningfulWords returns the distinct non-stopword words of a slug in order.
func MeaningfulWords(slug string) []string {
	words := textutil.SlugWords(slug)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) || slices.Contains(out, word) {
			continue
		}
		out = append(out, word)
	}
	return out
}

// StripDescriptors drops trailing descriptor words from a slug. At least one
// word always survives.
func StripDescriptors(slug string) string {
	words := textutil.SlugWords(slug)
	end := len(words)
	for end > 1 && IsDescriptor(words[end-1]) {
		end--
	}
	return textutil.JoinWords(words[:end])
}

var counterSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`-\d+-?(?:pack|packs|pk|pc|pcs|piece|pieces|count|ct|set)$`),
	regexp.MustCompile(`-(?:pack|set|box|case)-of-\d+$`),
	regexp.MustCompile(`-(?:x\d+|\d+x)$`),
	regexp.MustCompile(`-\d+$`),
}

// StripPrefix removes one of prefixes (given without trailing hyphen) from the
// start of slug. It returns the slug unchanged when none applies or when
// nothing would remain.
func StripPrefix(slug string, prefixes []string) string {
	for _, prefix := range prefixes {
		p := strings.Trim(prefix, "-") + "-"
		if p == "-" {
			continue
		}
		if strings.HasPrefix(slug, p) && len(slug) > len(p) {
			return slug[len(p):]
		}
	}
	return slug
}

// SlugVariants derives the alternative spellings of slug that a legacy link may
// have used: trailing pack/size counters and duplicate-slug counters dropped,
// leading articles and distributor prefixes removed. The original slug is not
// part of the result.
func SlugVariants(slug string, distributorPrefixes []string) []string {
	seen := map[string]struct{}{slug: {}}
	frontier := []string{slug}
	var out []string
	for round := 0; round < 3 && len(frontier) > 0; round++ {
		var next []string
		for _, value := range frontier {
			candidates := []string{
				StripPrefix(value, leadingArticles),
				StripPrefix(value, distributorPrefixes),
			}
			for _, re := range counterSuffixes {
				if re.MatchString(value) {
					candidates = append(candidates, re.ReplaceAllString(value, ""))
					break
				}
			}
			for _, candidate := range candidates {
				if candidate == "" {
					continue
				}
				if _, ok := seen[candidate]; ok {
					continue
				}
				seen[candidate] = struct{}{}
				out = append(out, candidate)
				next = append(next, candidate)
			}
		}
		frontier = next
	}
	slices.Sort(out)
	return out
}
