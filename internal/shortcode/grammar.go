package shortcode

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Token is one directive sighting inside a body.
type Token struct {
	Kind     string
	LegacyID string
	Raw      string
	Start    int
	End      int
}

// Grammar matches directive tokens and catalog links.
type Grammar struct {
	kinds           []string
	linkPrefixes    []string
	canonicalPrefix string
	directive       *regexp.Regexp
}

var hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)

// NewGrammar compiles a grammar for the given directive kinds. linkPrefixes
// mark catalog-shaped link paths (for example "/product/"); canonicalPrefix is
// the path prefix rewritten links point at.
func NewGrammar(kinds, linkPrefixes []string, canonicalPrefix string) (*Grammar, error) {
	g := &Grammar{}
	for _, kind := range kinds {
		kind = strings.TrimSpace(kind)
		if kind == "" || slices.Contains(g.kinds, kind) {
			continue
		}
		g.kinds = append(g.kinds, kind)
	}
	if len(g.kinds) == 0 {
		return nil, errors.New("shortcode grammar requires at least one directive kind")
	}
	for _, prefix := range linkPrefixes {
		if p := normalizeLinkPrefix(prefix); p != "" && !slices.Contains(g.linkPrefixes, p) {
			g.linkPrefixes = append(g.linkPrefixes, p)
		}
	}
	g.canonicalPrefix = normalizeLinkPrefix(canonicalPrefix)
	if g.canonicalPrefix == "" {
		g.canonicalPrefix = "/product/"
	}

	quoted := make([]string, len(g.kinds))
	for i, kind := range g.kinds {
		quoted[i] = regexp.QuoteMeta(kind)
	}
	pattern := `\[(` + strings.Join(quoted, "|") + `)(\s(?:[^\]]*?\s)?)id\s*=\s*(?:"([^"\]]*)"|'([^'\]]*)'|([^\s\]"']+))([^\]]*)\]`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile directive pattern: %w", err)
	}
	g.directive = re
	return g, nil
}

func normalizeLinkPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix + "/"
}

// Kinds returns the directive kinds this grammar recognizes.
func (g *Grammar) Kinds() []string { return slices.Clone(g.kinds) }

// FindAll returns every directive token in body in order of appearance.
func (g *Grammar) FindAll(body string) []Token {
	matches := g.directive.FindAllStringSubmatchIndex(body, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		id := ""
		for _, group := range []int{3, 4, 5} {
			if m[2*group] >= 0 {
				id = body[m[2*group]:m[2*group+1]]
				break
			}
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		tokens = append(tokens, Token{
			Kind:     body[m[2]:m[3]],
			LegacyID: id,
			Raw:      body[m[0]:m[1]],
			Start:    m[0],
			End:      m[1],
		})
	}
	return tokens
}

// Canonical returns raw with its id attribute replaced by id="target". The
// directive kind and any other attributes are preserved.
func (g *Grammar) Canonical(raw string, target int64) string {
	m := g.directive.FindStringSubmatchIndex(raw)
	if m == nil {
		return raw
	}
	idStart, idEnd := m[5], m[12]
	return raw[:idStart] + `id="` + strconv.FormatInt(target, 10) + `"` + raw[idEnd:]
}

// RewriteDirectives replaces every token whose legacy id is a key of mapping
// with its canonical form. It returns the new body and the number of tokens
// rewritten.
func (g *Grammar) RewriteDirectives(body string, mapping map[string]int64) (string, int) {
	tokens := g.FindAll(body)
	if len(tokens) == 0 {
		return body, 0
	}
	var b strings.Builder
	last := 0
	count := 0
	for _, tok := range tokens {
		target, ok := mapping[tok.LegacyID]
		if !ok {
			continue
		}
		replacement := g.Canonical(tok.Raw, target)
		if replacement == tok.Raw {
			continue
		}
		if count == 0 {
			b.Grow(len(body) + 16)
		}
		b.WriteString(body[last:tok.Start])
		b.WriteString(replacement)
		last = tok.End
		count++
	}
	if count == 0 {
		return body, 0
	}
	b.WriteString(body[last:])
	return b.String(), count
}

// Link is a catalog-shaped link found in markup.
type Link struct {
	Path  string
	Slug  string
	Start int
}

// CatalogLink inspects an href value and reports the catalog path and slug it
// points at. Only paths containing one of the configured link prefixes count.
func (g *Grammar) CatalogLink(href string) (path, slug string, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", "", false
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}
	p := parsed.Path
	if p == "" {
		return "", "", false
	}
	for _, prefix := range g.linkPrefixes {
		i := strings.Index(p, prefix)
		if i < 0 {
			continue
		}
		rest := p[i+len(prefix):]
		segment, _, _ := strings.Cut(rest, "/")
		if strings.TrimSpace(segment) == "" {
			continue
		}
		return p[:i+len(prefix)] + segment + "/", strings.ToLower(segment), true
	}
	return "", "", false
}

// CatalogLinks returns the catalog links found in markup, in order.
func (g *Grammar) CatalogLinks(markup string) []Link {
	matches := hrefPattern.FindAllStringSubmatchIndex(markup, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		path, slug, ok := g.CatalogLink(markup[m[2]:m[3]])
		if !ok {
			continue
		}
		links = append(links, Link{Path: path, Slug: slug, Start: m[0]})
	}
	return links
}

// CanonicalPath returns the link path for a catalog slug.
func (g *Grammar) CanonicalPath(slug string) string {
	return g.canonicalPrefix + strings.Trim(slug, "/") + "/"
}

// PathRule rewrites one legacy link path to its canonical replacement.
type PathRule struct {
	Old         string
	New         string
	re          *regexp.Regexp
	replacement string
}

// NewPathRule compiles a rule that matches oldPath (with or without trailing
// slash) only where it ends at a URL boundary, so a path that is a prefix of
// another slug is never touched. It reports false when there is nothing to do.
func NewPathRule(oldPath, newPath string) (*PathRule, bool) {
	oldTrim := strings.TrimRight(oldPath, "/")
	if oldTrim == "" || oldTrim == strings.TrimRight(newPath, "/") {
		return nil, false
	}
	return &PathRule{
		Old:         oldPath,
		New:         newPath,
		re:          regexp.MustCompile(regexp.QuoteMeta(oldTrim) + `/?(["'?#<\s)]|$)`),
		replacement: strings.ReplaceAll(newPath, "$", "$$") + "${1}",
	}, true
}

// Apply returns body with every match rewritten and the number of matches.
func (r *PathRule) Apply(body string) (string, int) {
	count := len(r.re.FindAllStringIndex(body, -1))
	if count == 0 {
		return body, 0
	}
	return r.re.ReplaceAllString(body, r.replacement), count
}

// ReplacePath is a one-shot NewPathRule followed by Apply.
func ReplacePath(body, oldPath, newPath string) (string, int) {
	rule, ok := NewPathRule(oldPath, newPath)
	if !ok {
		return body, 0
	}
	return rule.Apply(body)
}
