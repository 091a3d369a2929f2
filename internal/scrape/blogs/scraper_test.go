package blogs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/portal"
)

const testIndexURL = "https://iskcondesiretree.com/profiles/blogs?sort=newestPosts"

func newTestScraper(fetcher portal.Fetcher, snaps Snapshotter) *Scraper {
	return New(fetcher, Config{IndexURL: testIndexURL, DefaultAuthor: siteName}, DefaultRules(), snaps, zap.NewNop())
}

func indexWithPosts(n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= n; i++ {
		b.WriteString(blogAnchor(fmt.Sprintf("krishna-katha-%d", i), fmt.Sprintf("Krishna Katha Part %d", i)))
		b.WriteString(spacer)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func postURL(i int) string {
	return fmt.Sprintf("https://iskcondesiretree.com/profiles/blogs/krishna-katha-%d", i)
}

func TestScraperFetch_BackfillsFirstTenThumbnails(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[testIndexURL] = okPage(indexWithPosts(12))
	for i := 1; i <= 12; i++ {
		fetcher.pages[postURL(i)] = okPage(fmt.Sprintf(`<meta property="og:image" content="https://storage.ning.com/%d.jpg">`, i))
	}
	snaps := &fakeSnapshotter{}

	entries := newTestScraper(fetcher, snaps).Fetch(context.Background(), 15)

	require.Len(t, entries, 12)
	for i, e := range entries {
		require.Equal(t, postURL(i+1), e.URL)
		if i < ThumbnailLimit {
			require.Equal(t, fmt.Sprintf("https://storage.ning.com/%d.jpg", i+1), e.Thumbnail)
		} else {
			require.Empty(t, e.Thumbnail)
		}
	}
	require.Zero(t, fetcher.count(postURL(11)))
	require.Zero(t, fetcher.count(postURL(12)))
	require.Equal(t, 1, fetcher.count(testIndexURL))
	require.Equal(t, []string{testIndexURL}, snaps.urls())
}

func TestScraperFetch_ThumbnailFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[testIndexURL] = okPage(indexWithPosts(3))
	fetcher.pages[postURL(1)] = okPage(`<img src="//api.ning.com/files/one.jpg">`)
	fetcher.pages[postURL(2)] = portal.FetchResponse{StatusCode: http.StatusNotFound}
	fetcher.errs[postURL(3)] = errors.New("connection reset")

	entries := newTestScraper(fetcher, nil).Fetch(context.Background(), 15)

	require.Len(t, entries, 3)
	require.Equal(t, "https://api.ning.com/files/one.jpg", entries[0].Thumbnail)
	require.Empty(t, entries[1].Thumbnail)
	require.Empty(t, entries[2].Thumbnail)
}

func TestScraperFetch_UpstreamFailuresYieldEmpty(t *testing.T) {
	t.Parallel()

	failing := newFakeFetcher()
	failing.errs[testIndexURL] = errors.New("dial tcp: no route to host")
	require.Empty(t, newTestScraper(failing, nil).Fetch(context.Background(), 15))

	unavailable := newFakeFetcher()
	unavailable.pages[testIndexURL] = portal.FetchResponse{StatusCode: http.StatusBadGateway, Body: []byte(indexWithPosts(2))}
	snaps := &fakeSnapshotter{}
	require.Empty(t, newTestScraper(unavailable, snaps).Fetch(context.Background(), 15))
	require.Empty(t, snaps.urls())

	unexpected := newFakeFetcher()
	unexpected.pages[testIndexURL] = okPage("<html>maintenance</html>")
	require.Empty(t, newTestScraper(unexpected, nil).Fetch(context.Background(), 15))
	require.Equal(t, 1, unexpected.total())
}

func TestScraperFetch_SnapshotFailureIsIgnored(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[testIndexURL] = okPage(indexWithPosts(1))
	snaps := &fakeSnapshotter{err: errors.New("bucket missing")}

	entries := newTestScraper(fetcher, snaps).Fetch(context.Background(), 15)
	require.Len(t, entries, 1)
}

func TestScraperFetch_LimitBoundsEntriesAndFetches(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages[testIndexURL] = okPage(indexWithPosts(5))

	entries := newTestScraper(fetcher, nil).Fetch(context.Background(), 2)
	require.Len(t, entries, 2)
	require.Equal(t, 3, fetcher.total())
}

func okPage(body string) portal.FetchResponse {
	return portal.FetchResponse{StatusCode: http.StatusOK, Body: []byte(body)}
}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]portal.FetchResponse
	errs   map[string]error
	counts map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  make(map[string]portal.FetchResponse),
		errs:   make(map[string]error),
		counts: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req portal.FetchRequest) (portal.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[req.URL]++
	if err, ok := f.errs[req.URL]; ok {
		return portal.FetchResponse{}, err
	}
	if resp, ok := f.pages[req.URL]; ok {
		resp.URL = req.URL
		return resp, nil
	}
	return portal.FetchResponse{URL: req.URL, StatusCode: http.StatusNotFound}, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[url]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

type fakeSnapshotter struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (s *fakeSnapshotter) Record(_ context.Context, _ string, sourceURL string, _ []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.seen = append(s.seen, sourceURL)
	return "memory://" + sourceURL, nil
}

func (s *fakeSnapshotter) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}
