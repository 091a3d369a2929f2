package blogfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/metrics"
	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/scrape/blogs"
)

// ErrNoBlogs is returned when neither the scraper nor the static fallback
// produced any entry.
var ErrNoBlogs = errors.New("no blogs")

// Scraper produces a fresh blog list; it never fails, an empty list means the
// upstream could not be read.
type Scraper interface {
	Fetch(ctx context.Context, limit int) []portal.BlogEntry
}

// FallbackFunc loads the static list served when scraping yields nothing.
type FallbackFunc func() ([]portal.BlogEntry, error)

// Result is one blog list answer together with where it came from.
type Result struct {
	Blogs  []portal.BlogEntry
	Source portal.Source
	// CachedAt is set when Source is SourceCache.
	CachedAt time.Time
	// FetchedAt is set when Source is SourceLive.
	FetchedAt time.Time
}

// Service answers blog list reads.
type Service struct {
	scraper  Scraper
	cache    *Cache
	fallback FallbackFunc
	logger   *zap.Logger
}

// NewService wires a Service. fallback may be nil.
func NewService(scraper Scraper, cache *Cache, fallback FallbackFunc, logger *zap.Logger) *Service {
	if fallback == nil {
		fallback = func() ([]portal.BlogEntry, error) { return nil, nil }
	}
	return &Service{
		scraper:  scraper,
		cache:    cache,
		fallback: fallback,
		logger:   logging.OrNop(logger).Named("blogfeed"),
	}
}

// Read returns up to limit entries. A valid cache answers unless refresh is
// set; otherwise the index is scraped and, when that yields nothing, the
// static fallback is served.
func (s *Service) Read(ctx context.Context, limit int, refresh bool) (Result, error) {
	if limit <= 0 {
		limit = blogs.DefaultMax
	}
	if !refresh && s.cache.IsValid() {
		cached, at := s.cache.Get()
		metrics.ObserveBlogRead(string(portal.SourceCache))
		return Result{Blogs: head(cached, limit), Source: portal.SourceCache, CachedAt: at}, nil
	}

	fresh := s.scraper.Fetch(ctx, limit)
	if len(fresh) > 0 {
		at := s.cache.Set(fresh)
		metrics.ObserveBlogRead(string(portal.SourceLive))
		return Result{Blogs: fresh, Source: portal.SourceLive, FetchedAt: at}, nil
	}

	static, err := s.fallback()
	if err != nil {
		return Result{}, fmt.Errorf("load blog fallback: %w", err)
	}
	if len(static) == 0 {
		return Result{}, ErrNoBlogs
	}
	s.logger.Info("serving static blog fallback", zap.Int("count", min(len(static), limit)))
	metrics.ObserveBlogRead(string(portal.SourceStaticFallback))
	return Result{Blogs: head(static, limit), Source: portal.SourceStaticFallback}, nil
}

// Refresh scrapes DefaultMax entries and overwrites the cache slot.
func (s *Service) Refresh(ctx context.Context) ([]portal.BlogEntry, error) {
	fresh := s.scraper.Fetch(ctx, blogs.DefaultMax)
	if len(fresh) == 0 {
		s.logger.Warn("blog refresh produced no entries")
		return nil, ErrNoBlogs
	}
	s.cache.Set(fresh)
	metrics.ObserveBlogRead(string(portal.SourceLive))
	s.logger.Info("blog cache refreshed", zap.Int("count", len(fresh)))
	return fresh, nil
}

func head(list []portal.BlogEntry, n int) []portal.BlogEntry {
	if len(list) > n {
		return list[:n]
	}
	return list
}
