package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/blogfeed"
	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/scrape/blogs"
)

// isoMillis matches the millisecond ISO-8601 form browsers emit.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type blogListResponse struct {
	Success   bool               `json:"success"`
	Source    portal.Source      `json:"source"`
	Count     int                `json:"count"`
	Blogs     []portal.BlogEntry `json:"blogs"`
	CachedAt  string             `json:"cachedAt,omitempty"`
	FetchedAt string             `json:"fetchedAt,omitempty"`
}

type noBlogsResponse struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Blogs   []portal.BlogEntry `json:"blogs"`
}

type blogRefreshResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count,omitempty"`
	Blogs   []portal.BlogEntry `json:"blogs,omitempty"`
	Message string             `json:"message,omitempty"`
}

func (s *Server) getBlogs(w http.ResponseWriter, r *http.Request) {
	limit := parseMax(r.URL.Query().Get("max"))
	refresh := r.URL.Query().Get("refresh") == "true"

	res, err := s.blogs.Read(r.Context(), limit, refresh)
	if errors.Is(err, blogfeed.ErrNoBlogs) {
		writeJSON(w, http.StatusOK, noBlogsResponse{Success: false, Error: "No blogs", Blogs: []portal.BlogEntry{}})
		return
	}
	if err != nil {
		s.logger.Error("blog read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := blogListResponse{
		Success: true,
		Source:  res.Source,
		Count:   len(res.Blogs),
		Blogs:   res.Blogs,
	}
	switch res.Source {
	case portal.SourceCache:
		resp.CachedAt = isoTime(res.CachedAt)
	case portal.SourceLive:
		resp.FetchedAt = isoTime(res.FetchedAt)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refreshBlogs(w http.ResponseWriter, r *http.Request) {
	fresh, err := s.blogs.Refresh(r.Context())
	if err != nil {
		s.logger.Warn("forced blog refresh failed", zap.Error(err))
		writeJSON(w, http.StatusOK, blogRefreshResponse{Success: false, Message: "Failed to fetch blogs"})
		return
	}
	writeJSON(w, http.StatusOK, blogRefreshResponse{Success: true, Count: len(fresh), Blogs: fresh})
}

// parseMax reads the max query parameter; missing, malformed or non-positive
// values select blogs.DefaultMax and larger ones are capped at blogs.MaxEntries.
func parseMax(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return blogs.DefaultMax
	}
	return min(n, blogs.MaxEntries)
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}
