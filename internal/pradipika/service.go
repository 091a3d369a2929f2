// Package pradipika syncs the Bhagavata Pradipika PDF directory into the issue
// store and serves listings of stored and live issues.
package pradipika

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/metrics"
	"github.com/vedicportal/portal/internal/portal"
)

// ErrUpstreamStatus is returned when the directory page answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("directory returned non-success status")

// EventIssueSynced is the event attribute of messages published per new issue.
const EventIssueSynced = "issue.synced"

// DirectoryParser turns directory HTML into issue candidates.
type DirectoryParser interface {
	ParseDirectory(html []byte) ([]portal.IssueRecord, error)
}

// Snapshotter archives raw upstream pages.
type Snapshotter interface {
	Record(ctx context.Context, target, sourceURL string, body []byte) (string, error)
}

// FallbackFunc loads the static issue list served when the directory cannot be read.
type FallbackFunc func() ([]portal.IssueRecord, error)

// Config controls Service behavior.
type Config struct {
	DirectoryURL string
	// Topic receives one message per newly synced issue; empty disables publishing.
	Topic string
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Total     int        `json:"total"`
	Synced    int        `json:"synced"`
	NewIssues []NewIssue `json:"newIssues"`
}

// NewIssue identifies an issue inserted by a sync run.
type NewIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Service owns the directory sync pipeline and the issue read paths.
type Service struct {
	fetcher   portal.Fetcher
	parser    DirectoryParser
	store     portal.IssueStore
	ids       portal.IDGenerator
	clock     portal.Clock
	publisher portal.Publisher
	snapshots Snapshotter
	fallback  FallbackFunc
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Service. publisher, snapshots and fallback may be nil.
func New(
	fetcher portal.Fetcher,
	parser DirectoryParser,
	store portal.IssueStore,
	ids portal.IDGenerator,
	clock portal.Clock,
	publisher portal.Publisher,
	snapshots Snapshotter,
	fallback FallbackFunc,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		fetcher:   fetcher,
		parser:    parser,
		store:     store,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		snapshots: snapshots,
		fallback:  fallback,
		cfg:       cfg,
		logger:    logging.OrNop(logger).Named("pradipika"),
	}
}

// Sync fetches the directory, inserts every issue whose number is not stored
// yet and publishes one event per inserted issue.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	candidates, err := s.fetchDirectory(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	existing, err := s.store.IssueNumbers(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load stored issue numbers: %w", err)
	}

	fresh, err := s.newIssues(candidates, existing)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Total: len(candidates), NewIssues: []NewIssue{}}
	if len(fresh) == 0 {
		s.logger.Info("no new issues to sync", zap.Int("candidates", len(candidates)))
		return result, nil
	}

	inserted, err := s.store.InsertIssues(ctx, fresh)
	if err != nil {
		return SyncResult{}, fmt.Errorf("insert issues: %w", err)
	}
	// A concurrent sync may have stored some of fresh since IssueNumbers ran;
	// only rows this call wrote are reported and published.
	result.Synced = len(inserted)
	for _, issue := range inserted {
		result.NewIssues = append(result.NewIssues, NewIssue{Number: issue.IssueNumber, Title: issue.Title})
		s.publish(ctx, issue)
	}
	metrics.ObserveIssuesSynced(len(inserted))
	s.logger.Info("issues synced",
		zap.Int("candidates", len(candidates)),
		zap.Int("new", len(fresh)),
		zap.Int("synced", len(inserted)),
	)
	return result, nil
}

// Count returns the number of stored issues.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.CountIssues(ctx)
	if err != nil {
		return 0, fmt.Errorf("count issues: %w", err)
	}
	return n, nil
}

func (s *Service) fetchDirectory(ctx context.Context) ([]portal.IssueRecord, error) {
	resp, err := s.fetcher.Fetch(ctx, portal.FetchRequest{URL: s.cfg.DirectoryURL})
	if err != nil {
		metrics.ObserveScrape(metrics.TargetPradipikaIndex, metrics.OutcomeFetchError)
		return nil, fmt.Errorf("fetch directory: %w", err)
	}
	if !resp.OK() {
		metrics.ObserveScrape(metrics.TargetPradipikaIndex, metrics.OutcomeHTTPError)
		return nil, fmt.Errorf("fetch directory: %w (%d)", ErrUpstreamStatus, resp.StatusCode)
	}
	s.snapshot(ctx, resp.Body)

	records, err := s.parser.ParseDirectory(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	outcome := metrics.OutcomeOK
	if len(records) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveScrape(metrics.TargetPradipikaIndex, outcome)
	return records, nil
}

// newIssues keeps the first candidate per unseen issue number, in candidate order.
func (s *Service) newIssues(candidates []portal.IssueRecord, existing map[int]struct{}) ([]portal.Issue, error) {
	seen := make(map[int]struct{}, len(existing))
	for n := range existing {
		seen[n] = struct{}{}
	}
	now := s.clock.Now()
	var out []portal.Issue
	for _, record := range candidates {
		if _, ok := seen[record.IssueNumber]; ok {
			continue
		}
		seen[record.IssueNumber] = struct{}{}
		id, err := s.ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate issue id: %w", err)
		}
		out = append(out, portal.Issue{
			IssueRecord: record,
			ID:          id,
			SyncedAt:    now,
			CreatedAt:   now,
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, issue portal.Issue) {
	if s.cfg.Topic == "" || s.publisher == nil {
		return
	}
	attrs := map[string]string{
		"event":        EventIssueSynced,
		"issue_number": strconv.Itoa(issue.IssueNumber),
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.Topic, issue, attrs); err != nil {
		s.logger.Warn("publish synced issue failed", zap.Int("issue_number", issue.IssueNumber), zap.Error(err))
		return
	}
	s.logger.Debug("synced issue published", zap.Int("issue_number", issue.IssueNumber))
}

func (s *Service) snapshot(ctx context.Context, body []byte) {
	if s.snapshots == nil {
		return
	}
	if _, err := s.snapshots.Record(ctx, metrics.TargetPradipikaIndex, s.cfg.DirectoryURL, body); err != nil {
		s.logger.Warn("directory snapshot failed", zap.Error(err))
	}
}
