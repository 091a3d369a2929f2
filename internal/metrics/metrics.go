// Package metrics exposes Prometheus collectors for the portal service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scrape targets.
const (
	TargetBlogIndex      = "blog_index"
	TargetPradipikaIndex = "pradipika_directory"
)

// Scrape outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeHTTPError   = "http_error"
	OutcomeFetchError  = "fetch_error"
	OutcomeThumbnail   = "found"
	OutcomeNoThumbnail = "missing"
)

var (
	scrapeTotal                *prometheus.CounterVec
	thumbnailTotal             *prometheus.CounterVec
	blogReadsTotal             *prometheus.CounterVec
	issuesSyncedTotal          prometheus.Counter
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_scrape_total",
				Help: "Total number of upstream index scrapes, labeled by target and outcome.",
			},
			[]string{"target", "outcome"},
		)

		thumbnailTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_thumbnail_total",
				Help: "Total number of blog detail pages inspected for a thumbnail, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		blogReadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_blog_reads_total",
				Help: "Total number of blog list reads, labeled by the source that served them.",
			},
			[]string{"source"},
		)

		issuesSyncedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_issues_synced_total",
				Help: "Total number of magazine issues inserted by sync.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_fetch_rate_limit_delay_seconds",
				Help:    "Histogram of outbound rate limit wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape counts one index scrape.
func ObserveScrape(target, outcome string) {
	Init()
	scrapeTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveThumbnail counts one detail page inspection.
func ObserveThumbnail(found bool) {
	Init()
	outcome := OutcomeNoThumbnail
	if found {
		outcome = OutcomeThumbnail
	}
	thumbnailTotal.WithLabelValues(outcome).Inc()
}

// ObserveBlogRead counts a blog list read served from source.
func ObserveBlogRead(source string) {
	Init()
	blogReadsTotal.WithLabelValues(source).Inc()
}

// ObserveIssuesSynced adds n newly inserted issues.
func ObserveIssuesSynced(n int) {
	Init()
	if n > 0 {
		issuesSyncedTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(SanitizeSite(domain)).Observe(duration.Seconds())
}
