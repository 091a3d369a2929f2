package blogs

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/metrics"
	"github.com/vedicportal/portal/internal/portal"
)

// Snapshotter archives raw upstream pages.
type Snapshotter interface {
	Record(ctx context.Context, target, sourceURL string, body []byte) (string, error)
}

// Config controls where the scraper reads from.
type Config struct {
	IndexURL      string
	DefaultAuthor string
}

// Scraper fetches the blog index and turns it into entries.
type Scraper struct {
	fetcher   portal.Fetcher
	cfg       Config
	rules     Rules
	snapshots Snapshotter
	logger    *zap.Logger
}

// New builds a Scraper. snapshots may be nil.
func New(fetcher portal.Fetcher, cfg Config, rules Rules, snapshots Snapshotter, logger *zap.Logger) *Scraper {
	return &Scraper{
		fetcher:   fetcher,
		cfg:       cfg,
		rules:     rules,
		snapshots: snapshots,
		logger:    logging.OrNop(logger),
	}
}

// Fetch returns up to limit entries from the index page in document order.
// Upstream failures are logged and yield an empty result; no error is returned.
func (s *Scraper) Fetch(ctx context.Context, limit int) []portal.BlogEntry {
	resp, err := s.fetcher.Fetch(ctx, portal.FetchRequest{URL: s.cfg.IndexURL})
	if err != nil {
		s.logger.Warn("blog index fetch failed", zap.String("url", s.cfg.IndexURL), zap.Error(err))
		metrics.ObserveScrape(metrics.TargetBlogIndex, metrics.OutcomeFetchError)
		return nil
	}
	if !resp.OK() {
		s.logger.Warn("blog index returned non-success status",
			zap.String("url", s.cfg.IndexURL),
			zap.Int("status", resp.StatusCode),
		)
		metrics.ObserveScrape(metrics.TargetBlogIndex, metrics.OutcomeHTTPError)
		return nil
	}
	s.snapshot(ctx, resp)

	entries := s.rules.ExtractEntries(string(resp.Body), limit, s.cfg.DefaultAuthor)
	if len(entries) == 0 {
		s.logger.Warn("blog index yielded no entries", zap.Int("bytes", len(resp.Body)))
		metrics.ObserveScrape(metrics.TargetBlogIndex, metrics.OutcomeEmpty)
		return nil
	}
	metrics.ObserveScrape(metrics.TargetBlogIndex, metrics.OutcomeOK)
	s.logger.Info("blog entries extracted", zap.Int("count", len(entries)))

	s.backfillThumbnails(ctx, entries)
	return entries
}

// backfillThumbnails fills Thumbnail for the first ThumbnailLimit entries in place.
func (s *Scraper) backfillThumbnails(ctx context.Context, entries []portal.BlogEntry) {
	n := min(len(entries), ThumbnailLimit)
	var g errgroup.Group
	g.SetLimit(ThumbnailLimit)
	for i := range n {
		g.Go(func() error {
			entries[i].Thumbnail = s.thumbnail(ctx, entries[i].URL)
			metrics.ObserveThumbnail(entries[i].Thumbnail != "")
			return nil
		})
	}
	// A failed lookup leaves Thumbnail empty; no goroutine returns an error.
	_ = g.Wait()
}

func (s *Scraper) thumbnail(ctx context.Context, pageURL string) string {
	resp, err := s.fetcher.Fetch(ctx, portal.FetchRequest{URL: pageURL})
	if err != nil {
		s.logger.Debug("thumbnail fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	if !resp.OK() {
		s.logger.Debug("thumbnail page returned non-success status",
			zap.String("url", pageURL),
			zap.Int("status", resp.StatusCode),
		)
		return ""
	}
	return s.rules.ExtractThumbnail(resp.Body)
}

func (s *Scraper) snapshot(ctx context.Context, resp portal.FetchResponse) {
	if s.snapshots == nil {
		return
	}
	uri, err := s.snapshots.Record(ctx, metrics.TargetBlogIndex, s.cfg.IndexURL, resp.Body)
	if err != nil {
		s.logger.Warn("blog index snapshot failed", zap.Error(err))
		return
	}
	s.logger.Debug("blog index snapshot stored", zap.String("uri", uri))
}
