package portal

import (
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned by stores when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Source tags where a blog list response came from.
type Source string

// Blog list sources reported to API clients.
const (
	SourceLive           Source = "live"
	SourceCache          Source = "cache"
	SourceStaticFallback Source = "static-fallback"
	SourceFallback       Source = "fallback"
)

// BlogEntry is one post scraped from the blog index. It is never persisted.
type BlogEntry struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
}

// IssueRecord is a magazine issue candidate derived from a PDF filename.
type IssueRecord struct {
	IssueNumber int     `json:"issue_number"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	PDFURL      string  `json:"pdf_url"`
	PDFFilename string  `json:"pdf_filename"`
	IsSpecial   bool    `json:"is_special"`
	SpecialType *string `json:"special_type"`
}

// Year returns the YYYY prefix of the issue date, or "" when the date is unknown.
func (r IssueRecord) Year() string {
	if len(r.Date) < 4 {
		return ""
	}
	return r.Date[:4]
}

// Issue is an IssueRecord as stored in the issue table.
type Issue struct {
	IssueRecord
	ID            string    `json:"id"`
	CoverImageURL *string   `json:"cover_image_url"`
	SyncedAt      time.Time `json:"synced_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// IssueFilter narrows ListIssues results.
type IssueFilter struct {
	Year        string
	SpecialOnly bool
	SpecialType string
	Limit       int
	Offset      int
}

// FetchRequest captures everything needed to fetch an upstream page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the upstream answered with a 2xx status.
func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
