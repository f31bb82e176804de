package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugReplacer = strings.NewReplacer(
	"&amp;", " and ",
	"&", " and ",
	"+", " plus ",
	"'", "",
	"’", "",
)

// FoldASCII strips combining marks so "Crème" and "Creme" compare equal.
func FoldASCII(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slugify lowercases value and collapses every run of characters outside
// [a-z0-9] into a single hyphen. Leading and trailing hyphens are trimmed.
func Slugify(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = FoldASCII(slugReplacer.Replace(value))
	var b strings.Builder
	b.Grow(len(value))
	pendingHyphen := false
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// SlugWords splits a slug into its hyphen-separated words.
func SlugWords(slug string) []string {
	if slug == "" {
		return nil
	}
	parts := strings.Split(slug, "-")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinWords is the inverse of SlugWords.
func JoinWords(words []string) string {
	return strings.Join(words, "-")
}

// CollapseSpace folds runs of whitespace into single spaces and trims the result.
func CollapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Truncate shortens value to at most max runes, marking the cut with "...".
func Truncate(value string, max int) string {
	value = CollapseSpace(value)
	if max <= 0 || utf8.RuneCountInString(value) <= max {
		return value
	}
	if max <= 3 {
		return string([]rune(value)[:max])
	}
	return strings.TrimSpace(string([]rune(value)[:max-3])) + "..."
}
