package pradipika

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/clock"
	"github.com/vedicportal/portal/internal/fallback"
	"github.com/vedicportal/portal/internal/id"
	"github.com/vedicportal/portal/internal/portal"
	pubmemory "github.com/vedicportal/portal/internal/publisher/memory"
	"github.com/vedicportal/portal/internal/scrape/issues"
	"github.com/vedicportal/portal/internal/storage/memory"
)

const testDirectoryURL = "https://ebooks.iskcondesiretree.com/index.php?q=f&f=%2Fpdf%2FBhagavata_Pradipika"

const syncFixture = `<html><body><table>
<tr><td><a href="/pdf/Bhagavata_Pradipika/92_-_Bhagavata_Pradipika_Issue_92-Me_Mind_and_Bhakti-Dissatisfaction_-_2025-02.pdf">92</a></td></tr>
<tr><td><a href="/pdf/Bhagavata_Pradipika/Bhagavata_Pradipika_Issue_100-Kartik_Special_-_2025-10.pdf">100</a></td></tr>
<tr><td><a href="/pdf/Bhagavata_Pradipika/95_-_Bhagavata_Pradipika_Issue_95-A_Devotee%27s_Compassion_-_2025-05.pdf">95</a></td></tr>
<tr><td><a href="/pdf/Bhagavata_Pradipika/92_-_Bhagavata_Pradipika_Issue_92-Reupload_-_2025-02.pdf">92 again</a></td></tr>
<tr><td><a href="/pdf/Bhagavata_Pradipika/93_-_Bhagavata_Pradipika_Issue_93-An_Unwarranted_Distraction_-_2025-03.pdf">93</a></td></tr>
<tr><td><a href="/pdf/Bhagavata_Pradipika/readme.txt">readme</a></td></tr>
</table></body></html>`

var syncEpoch = time.Date(2025, 11, 2, 6, 30, 0, 0, time.UTC)

type harness struct {
	svc       *Service
	fetcher   *fakeFetcher
	store     *memory.IssueStore
	publisher *pubmemory.Publisher
	snapshots *fakeSnapshotter
}

func newHarness(t *testing.T, topic string) *harness {
	t.Helper()
	parser, err := issues.NewParser(issues.Config{
		BaseURL:    "https://ebooks.iskcondesiretree.com",
		LinkMarker: "Bhagavata_Pradipika",
	}, issues.DefaultVocabulary())
	require.NoError(t, err)

	h := &harness{
		fetcher:   &fakeFetcher{},
		store:     memory.NewIssueStore(),
		publisher: pubmemory.New(),
		snapshots: &fakeSnapshotter{},
	}
	h.fetcher.respond(http.StatusOK, syncFixture)
	h.svc = New(
		h.fetcher,
		parser,
		h.store,
		id.NewSequence("issue"),
		clock.NewManual(syncEpoch),
		h.publisher,
		h.snapshots,
		fallback.Issues,
		Config{DirectoryURL: testDirectoryURL, Topic: topic},
		zap.NewNop(),
	)
	return h
}

func (h *harness) seed(t *testing.T, numbers ...int) {
	t.Helper()
	for _, n := range numbers {
		_, err := h.store.InsertIssues(context.Background(), []portal.Issue{{
			ID:          "seed",
			IssueRecord: portal.IssueRecord{IssueNumber: n, Title: "seeded"},
		}})
		require.NoError(t, err)
	}
}

func TestSyncInsertsOnlyNewIssueNumbers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "issues")
	h.seed(t, 95)

	res, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Synced)
	assert.Equal(t, []NewIssue{
		{Number: 92, Title: "Me Mind and Bhakti Dissatisfaction"},
		{Number: 100, Title: "Kartik Special"},
		{Number: 93, Title: "An Unwarranted Distraction"},
	}, res.NewIssues)

	stored, err := h.store.GetIssueByNumber(context.Background(), 92)
	require.NoError(t, err)
	assert.Equal(t, "issue-1", stored.ID)
	assert.Equal(t, "Me Mind and Bhakti Dissatisfaction", stored.Title, "first candidate per number wins")
	assert.Equal(t, syncEpoch, stored.SyncedAt)
	assert.Equal(t, syncEpoch, stored.CreatedAt)
	assert.Nil(t, stored.CoverImageURL)

	kartik, err := h.store.GetIssueByNumber(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, kartik.SpecialType)
	assert.Equal(t, "kartik", *kartik.SpecialType)

	seeded, err := h.store.GetIssueByNumber(context.Background(), 95)
	require.NoError(t, err)
	assert.Equal(t, "seeded", seeded.Title)

	assert.Equal(t, 1, h.snapshots.count())
}

func TestSyncPublishesOneEventPerNewIssue(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "issues")

	_, err := h.svc.Sync(context.Background())
	require.NoError(t, err)

	msgs := h.publisher.Messages()
	require.Len(t, msgs, 4)
	for _, msg := range msgs {
		assert.Equal(t, "issues", msg.Topic)
		assert.Equal(t, EventIssueSynced, msg.Attributes["event"])
	}
	assert.Equal(t, "92", msgs[0].Attributes["issue_number"])
	payload, ok := msgs[1].Payload.(portal.Issue)
	require.True(t, ok)
	assert.Equal(t, 100, payload.IssueNumber)
}

func TestSyncWithoutTopicDoesNotPublish(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	_, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.publisher.Messages())
}

func TestSyncTwiceIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")

	_, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	res, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Zero(t, res.Synced)
	assert.NotNil(t, res.NewIssues)
	assert.Empty(t, res.NewIssues)

	count, err := h.svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestSyncReportsOnlyRowsItInserted(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "issues")
	h.seed(t, 92, 95)
	// Another sync stored 92 and 95 after this one read the issue numbers.
	h.svc.store = staleStore{IssueStore: h.store}

	res, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, []NewIssue{
		{Number: 100, Title: "Kartik Special"},
		{Number: 93, Title: "An Unwarranted Distraction"},
	}, res.NewIssues)

	msgs := h.publisher.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "100", msgs[0].Attributes["issue_number"])
	assert.Equal(t, "93", msgs[1].Attributes["issue_number"])
}

func TestSyncUpstreamStatusError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	h.fetcher.respond(http.StatusServiceUnavailable, "down")

	_, err := h.svc.Sync(context.Background())
	require.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Zero(t, h.snapshots.count())
}

func TestSyncTransportError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	h.fetcher.fail(errors.New("connection refused"))

	_, err := h.svc.Sync(context.Background())
	require.ErrorContains(t, err, "fetch directory: connection refused")
}

func TestSyncStoreErrorPropagates(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	h.svc.store = failingStore{IssueStore: h.store}

	_, err := h.svc.Sync(context.Background())
	require.ErrorContains(t, err, "load stored issue numbers: database unavailable")
}

func TestSyncSnapshotFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	h.snapshots.err = errors.New("bucket missing")

	res, err := h.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Synced)
}

type fakeFetcher struct {
	mu     sync.Mutex
	status int
	body   string
	err    error
}

func (f *fakeFetcher) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body, f.err = status, body, nil
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) Fetch(_ context.Context, req portal.FetchRequest) (portal.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return portal.FetchResponse{}, f.err
	}
	return portal.FetchResponse{URL: req.URL, StatusCode: f.status, Body: []byte(f.body)}, nil
}

type fakeSnapshotter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSnapshotter) Record(context.Context, string, string, []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "memory://snapshot", nil
}

func (f *fakeSnapshotter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingStore struct {
	*memory.IssueStore
}

func (failingStore) IssueNumbers(context.Context) (map[int]struct{}, error) {
	return nil, errors.New("database unavailable")
}

type staleStore struct {
	*memory.IssueStore
}

func (staleStore) IssueNumbers(context.Context) (map[int]struct{}, error) {
	return map[int]struct{}{}, nil
}
