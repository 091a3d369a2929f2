// Package portal defines the domain types and collaborator interfaces shared by
// the scrapers, the blog cache, the magazine sync service and the HTTP API.
//
// Two extraction pipelines live behind these types:
//   - the blog list scraper, which turns the community blog index into BlogEntry
//     values and backfills thumbnails from each entry's detail page;
//   - the magazine directory parser, which turns a PDF directory listing into
//     IssueRecord candidates that the sync service diffs against storage.
package portal
