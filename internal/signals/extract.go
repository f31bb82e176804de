package signals

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"relink/internal/shortcode"
	"relink/internal/textutil"
)

const (
	DefaultLookbehind = 3000
	DefaultLookahead  = 400
)

var (
	imgPattern        = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	altPattern        = regexp.MustCompile(`(?is)\balt\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	srcPattern        = regexp.MustCompile(`(?is)\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	captionPattern    = regexp.MustCompile(`(?is)\[caption\b[^\]]*\](.*?)\[/caption\]`)
	figcaptionPattern = regexp.MustCompile(`(?is)<figcaption\b[^>]*>(.*?)</figcaption\s*>`)
	headingPattern    = regexp.MustCompile(`(?is)<h[1-6]\b[^>]*>(.*?)</h[1-6]\s*>`)
	anchorPattern     = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a\s*>`)

	filenameNoise = []*regexp.Regexp{
		regexp.MustCompile(`-\d+x\d+$`),
		regexp.MustCompile(`-scaled$`),
		regexp.MustCompile(`-e\d{10,}$`),
		regexp.MustCompile(`-\d{1,2}$`),
	}
	cameraFilename = regexp.MustCompile(`^(?:img|dsc|dscn|image|photo|screenshot)-?\d*$`)
)

// Extractor pulls context signals from a bounded window around a token.
type Extractor struct {
	grammar    *shortcode.Grammar
	lookbehind int
	lookahead  int
}

// NewExtractor returns an Extractor. Non-positive window sizes fall back to
// DefaultLookbehind and DefaultLookahead.
func NewExtractor(grammar *shortcode.Grammar, lookbehind, lookahead int) *Extractor {
	if lookbehind <= 0 {
		lookbehind = DefaultLookbehind
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Extractor{grammar: grammar, lookbehind: lookbehind, lookahead: lookahead}
}

// Extract derives the signals for a token starting at offset in body. It never
// fails; offsets outside body are clamped.
func (e *Extractor) Extract(body string, offset int) Signals {
	offset = min(max(offset, 0), len(body))
	start := snapForward(body, max(0, offset-e.lookbehind))
	end := snapBackward(body, min(len(body), offset+e.lookahead))
	before := body[start:offset]
	after := body[offset:end]

	var sig Signals
	if links := e.grammar.CatalogLinks(before); len(links) > 0 {
		nearest := links[len(links)-1]
		sig.NearbyPath = nearest.Path
		sig.NearbySlug = nearest.Slug
	}

	if tag := lastMatch(imgPattern, before); tag != "" {
		sig.ImageAltText = textutil.CollapseSpace(html.UnescapeString(attrValue(altPattern, tag)))
		sig.ImageFilenameToken = FilenameToken(attrValue(srcPattern, tag))
	}

	sig.CaptionText = nearestText(before, after, captionPattern, figcaptionPattern)
	sig.HeadingText = nearestText(before, "", headingPattern)
	sig.LinkText = nearestText(before, after, anchorPattern)
	return sig
}

// FilenameToken turns an image URL into a slug-like token: extension, size
// suffixes and copy counters are removed, and generic camera names are dropped.
func FilenameToken(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	base := path.Base(src)
	base = strings.TrimSuffix(base, path.Ext(base))
	token := textutil.Slugify(base)
	for changed := true; changed; {
		changed = false
		for _, re := range filenameNoise {
			if next := re.ReplaceAllString(token, ""); next != token && next != "" {
				token = next
				changed = true
			}
		}
	}
	if cameraFilename.MatchString(token) {
		return ""
	}
	return token
}

// nearestText returns the inner text of the pattern match closest to the
// token: the last match before it, or failing that the first match after it.
func nearestText(before, after string, patterns ...*regexp.Regexp) string {
	bestEnd := -1
	best := ""
	for _, re := range patterns {
		matches := re.FindAllStringSubmatchIndex(before, -1)
		if len(matches) == 0 {
			continue
		}
		m := matches[len(matches)-1]
		if m[1] > bestEnd {
			bestEnd = m[1]
			best = before[m[2]:m[3]]
		}
	}
	if bestEnd < 0 && after != "" {
		bestStart := len(after) + 1
		for _, re := range patterns {
			m := re.FindStringSubmatchIndex(after)
			if m != nil && m[0] < bestStart {
				bestStart = m[0]
				best = after[m[2]:m[3]]
			}
		}
	}
	return InnerText(best)
}

// InnerText strips markup and shortcodes from a fragment and folds whitespace.
func InnerText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return textutil.CollapseSpace(stripBracketTags(b.String()))
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}

var bracketTag = regexp.MustCompile(`\[/?[a-z_]+[^\]]*\]`)

func stripBracketTags(value string) string {
	return bracketTag.ReplaceAllString(value, " ")
}

func lastMatch(re *regexp.Regexp, value string) string {
	matches := re.FindAllString(value, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

func attrValue(re *regexp.Regexp, tag string) string {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func snapForward(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

func snapBackward(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
