package issues

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vedicportal/portal/internal/portal"
)

// Config locates PDF links inside the directory listing.
type Config struct {
	// BaseURL resolves relative hrefs.
	BaseURL string
	// LinkMarker must appear in an href (case-insensitively) for it to count.
	LinkMarker string
}

// Parser extracts issue candidates from a directory listing page.
type Parser struct {
	base   *url.URL
	marker string
	vocab  Vocabulary
}

// NewParser validates cfg and builds a Parser.
func NewParser(cfg Config, vocab Vocabulary) (*Parser, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.LinkMarker == "" {
		return nil, fmt.Errorf("link marker is required")
	}
	return &Parser{
		base:   base,
		marker: strings.ToLower(cfg.LinkMarker),
		vocab:  vocab,
	}, nil
}

// ParseDirectory returns one candidate per qualifying PDF link, in document
// order. Links whose filename carries no issue number are dropped, as are
// links that cannot be resolved or decoded. No deduplication happens here.
func (p *Parser) ParseDirectory(html []byte) ([]portal.IssueRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse directory html: %w", err)
	}

	var records []portal.IssueRecord
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !p.isIssueLink(href) {
			return
		}
		record, ok := p.ParseLink(href)
		if !ok {
			return
		}
		records = append(records, record)
	})
	return records, nil
}

// ParseLink resolves href and parses its filename.
func (p *Parser) ParseLink(href string) (portal.IssueRecord, bool) {
	pdfURL, ok := p.resolve(href)
	if !ok {
		return portal.IssueRecord{}, false
	}
	filename, err := url.PathUnescape(pdfURL[strings.LastIndex(pdfURL, "/")+1:])
	if err != nil {
		return portal.IssueRecord{}, false
	}
	record, ok := p.vocab.ParseFilename(filename)
	if !ok {
		return portal.IssueRecord{}, false
	}
	record.PDFURL = pdfURL
	return record, true
}

func (p *Parser) isIssueLink(href string) bool {
	lower := strings.ToLower(href)
	return strings.Contains(lower, p.marker) && strings.HasSuffix(lower, ".pdf")
}

func (p *Parser) resolve(href string) (string, bool) {
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href, true
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return p.base.ResolveReference(ref).String(), true
}
