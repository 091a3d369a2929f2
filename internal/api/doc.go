// Package api hosts the HTTP server, middleware, and JSON handlers of the
// portal service. Notable routes:
//   - GET/POST /api/blogs for the cached blog list and forced refreshes.
//   - GET/POST /api/pradipika/sync for magazine sync status and runs.
//   - GET /api/pradipika, /api/pradipika/list and /api/pradipika/{id} for issue listings.
//   - GET /healthz, /readyz for probes and /metrics for Prometheus scraping.
package api
