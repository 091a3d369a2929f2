package blogs

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vedicportal/portal/internal/portal"
)

var (
	anchorPattern = regexp.MustCompile(
		`(?i)<a[^>]*href="(https://iskcondesiretree\.com/profiles/blogs/[a-z0-9-]+)"[^>]*>[\s\S]*?</a>`)
	titlePattern  = regexp.MustCompile(`>([^<]+)<`)
	authorPattern = regexp.MustCompile(`(?i)Posted by[\s\S]*?<a[^>]*>([^<]+)</a>`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)on\s+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)(\d{1,2}\s+[A-Z][a-z]+\s+\d{4})`),
		regexp.MustCompile(`(?i)([A-Z][a-z]+\s+\d{1,2},?\s+\d{4}\s+at\s+\d+:\d+[ap]m)`),
	}
)

// Order matters: "&amp;lt;" decodes all the way to "<".
var entityReplacements = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&nbsp;", " "},
	{"&#8211;", "–"},
	{"&#8212;", "—"},
	{"&#8217;", "'"},
	{"&#x27;", "'"},
}

// unknownDate is reported when no date pattern matches near an entry.
const unknownDate = "Recent"

// ExtractEntries walks blog anchors in document order and returns at most limit
// entries. Thumbnails are left empty.
func (r Rules) ExtractEntries(html string, limit int, defaultAuthor string) []portal.BlogEntry {
	if limit <= 0 {
		return nil
	}
	var entries []portal.BlogEntry
	seen := make(map[string]struct{})

	for _, m := range anchorPattern.FindAllStringSubmatchIndex(html, -1) {
		if len(entries) >= limit {
			break
		}
		matchStart := m[0]
		block := html[m[0]:m[1]]
		blogURL := html[m[2]:m[3]]

		if r.deniedSlug(slugOf(blogURL)) {
			continue
		}
		if _, dup := seen[blogURL]; dup {
			continue
		}
		seen[blogURL] = struct{}{}

		title, ok := anchorTitle(block)
		if !ok || !r.validTitle(title) {
			continue
		}

		window := contextWindow(html, matchStart)
		entries = append(entries, portal.BlogEntry{
			Title:  DecodeEntities(title),
			Author: extractAuthor(window, defaultAuthor),
			Date:   extractDate(window),
			URL:    blogURL,
		})
	}
	return entries
}

func slugOf(blogURL string) string {
	if i := strings.LastIndex(blogURL, "/"); i >= 0 {
		return blogURL[i+1:]
	}
	return blogURL
}

func (r Rules) deniedSlug(slug string) bool {
	for _, deny := range r.SlugDenylist {
		if strings.Contains(slug, deny) {
			return true
		}
	}
	return false
}

// anchorTitle returns the first text run inside the anchor block, trimmed.
func anchorTitle(block string) (string, bool) {
	m := titlePattern.FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func (r Rules) validTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	if n < r.MinTitleLength || n > r.MaxTitleLength {
		return false
	}
	_, label := r.TitleDenylist[strings.ToLower(strings.TrimSpace(title))]
	return !label
}

// DecodeEntities decodes the fixed entity list the index page is known to use.
// Other entities are left as-is.
func DecodeEntities(s string) string {
	for _, rep := range entityReplacements {
		s = strings.ReplaceAll(s, rep[0], rep[1])
	}
	return s
}

// contextWindow returns up to ContextBefore characters before matchStart and
// ContextAfter characters from it. Characters are runes, not bytes.
func contextWindow(html string, matchStart int) string {
	start := matchStart
	for i := 0; i < ContextBefore && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(html[:start])
		start -= size
	}
	end := matchStart
	for i := 0; i < ContextAfter && end < len(html); i++ {
		_, size := utf8.DecodeRuneInString(html[end:])
		end += size
	}
	return html[start:end]
}

func extractAuthor(window, defaultAuthor string) string {
	m := authorPattern.FindStringSubmatch(window)
	if m == nil {
		return defaultAuthor
	}
	return DecodeEntities(strings.TrimSpace(m[1]))
}

func extractDate(window string) string {
	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(window); m != nil {
			date, _, _ := strings.Cut(m[1], " at ")
			return date
		}
	}
	return unknownDate
}
