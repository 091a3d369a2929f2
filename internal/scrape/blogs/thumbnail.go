package blogs

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractThumbnail picks a thumbnail from a blog detail page: the first
// non-empty og:image, otherwise the first content image served from one of the
// rule's hosts. Returns "" when nothing qualifies or the page does not parse.
func (r Rules) ExtractThumbnail(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	if og := ogImage(doc); og != "" {
		return og
	}
	return r.contentImage(doc)
}

func ogImage(doc *goquery.Document) string {
	var found string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("property", ""), "og:image") {
			return true
		}
		if content := s.AttrOr("content", ""); content != "" {
			found = content
			return false
		}
		return true
	})
	return found
}

func (r Rules) contentImage(doc *goquery.Document) string {
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if src == "" || r.IconPattern.MatchString(src) || !r.allowedHost(src) {
			return true
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		found = src
		return false
	})
	return found
}

func (r Rules) allowedHost(src string) bool {
	for _, host := range r.ThumbnailHosts {
		if strings.Contains(src, host) {
			return true
		}
	}
	return false
}
