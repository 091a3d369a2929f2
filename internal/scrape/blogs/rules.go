// Package blogs scrapes the community blog index into portal.BlogEntry values.
//
// Entry discovery is positional: anchors, authors and dates are found by
// regular expressions over the raw index HTML, exactly as they appear in the
// page, so that a changed layout degrades to fewer entries instead of wrong
// ones. Thumbnails come from each entry's detail page via a goquery parse.
package blogs

import "regexp"

const (
	// ThumbnailLimit caps how many entries get a detail-page thumbnail lookup.
	ThumbnailLimit = 10
	// ContextBefore and ContextAfter bound the window searched for author and date.
	ContextBefore = 200
	ContextAfter  = 800
	// DefaultMax is the entry count used for forced refreshes and bad input.
	DefaultMax = 15
	// MaxEntries caps the entry count a caller may ask for.
	MaxEntries = 100
)

// Rules holds the vocabularies that decide which anchors become entries.
type Rules struct {
	// SlugDenylist rejects anchors whose final path segment contains any item.
	SlugDenylist []string
	// TitleDenylist rejects navigation labels (compared trimmed and lowercased).
	TitleDenylist map[string]struct{}
	MinTitleLength int
	MaxTitleLength int
	// IconPattern rejects img sources that are avatars, badges and the like.
	IconPattern *regexp.Regexp
	// ThumbnailHosts lists substrings an img src must contain to be used.
	ThumbnailHosts []string
}

var uiLabels = []string{
	"blog", "blogs", "all posts", "featured", "featured posts", "read more",
	"view all", "see all", "more", "search", "home", "login", "sign in",
	"my page", "inbox", "add post", "newest posts", "comments", "add",
}

// DefaultRules returns the vocabularies used against the live site.
func DefaultRules() Rules {
	labels := make(map[string]struct{}, len(uiLabels))
	for _, l := range uiLabels {
		labels[l] = struct{}{}
	}
	return Rules{
		SlugDenylist:   []string{"feed", "list", "blogpost", "featured", "new"},
		TitleDenylist:  labels,
		MinTitleLength: 5,
		MaxTitleLength: 200,
		IconPattern:    regexp.MustCompile(`(?i)avatar|icon|logo|profile|gravatar|badge|16x16|32x32|48x48|spinner`),
		ThumbnailHosts: []string{"ning.com", "iskcondesiretree.com"},
	}
}

// WithThumbnailHosts returns a copy of r using hosts, when hosts is non-empty.
func (r Rules) WithThumbnailHosts(hosts []string) Rules {
	if len(hosts) > 0 {
		r.ThumbnailHosts = append([]string(nil), hosts...)
	}
	return r
}
