package portal

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves an upstream page. Transport failures are errors; any HTTP
// status, including 4xx/5xx, is reported through FetchResponse.StatusCode.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces issue IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// IssueStore persists synced magazine issues keyed by issue number.
type IssueStore interface {
	IssueNumbers(ctx context.Context) (map[int]struct{}, error)
	// InsertIssues returns the subset of issues that was actually written.
	InsertIssues(ctx context.Context, issues []Issue) ([]Issue, error)
	CountIssues(ctx context.Context) (int, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, int, error)
	GetIssueByNumber(ctx context.Context, number int) (Issue, error)
	GetIssueByID(ctx context.Context, id string) (Issue, error)
	RelatedIssues(ctx context.Context, issue Issue, limit int) ([]Issue, error)
}

// Publisher pushes sync events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
