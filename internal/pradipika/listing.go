package pradipika

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/portal"
)

// DefaultListLimit is the page size used when a listing asks for none.
const DefaultListLimit = 50

// RelatedLimit caps the related issues returned with a single issue.
const RelatedLimit = 5

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Listing is one page of stored issues plus groupings of that page.
type Listing struct {
	Issues       []portal.Issue            `json:"issues"`
	IssuesByYear map[string][]portal.Issue `json:"issuesByYear"`
	Years        []string                  `json:"years"`
	SpecialTypes []string                  `json:"specialTypes"`
	Total        int                       `json:"total"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
}

// Detail is a single stored issue with its related issues.
type Detail struct {
	Issue         portal.Issue   `json:"issue"`
	RelatedIssues []portal.Issue `json:"relatedIssues"`
}

// Live parses the directory on demand and returns its issues newest first.
// Any failure, or a directory with no issues, yields the static list instead.
func (s *Service) Live(ctx context.Context) ([]portal.IssueRecord, portal.Source, error) {
	records, err := s.fetchDirectory(ctx)
	if err == nil && len(records) > 0 {
		for i := range records {
			if records[i].Title == "" {
				records[i].Title = fmt.Sprintf("Issue %d", records[i].IssueNumber)
			}
		}
		sort.SliceStable(records, func(i, j int) bool { return records[i].IssueNumber > records[j].IssueNumber })
		return records, portal.SourceLive, nil
	}
	if err != nil {
		s.logger.Warn("live directory read failed, serving fallback", zap.Error(err))
	} else {
		s.logger.Warn("live directory had no issues, serving fallback")
	}
	if s.fallback == nil {
		return []portal.IssueRecord{}, portal.SourceFallback, nil
	}
	static, ferr := s.fallback()
	if ferr != nil {
		return nil, "", fmt.Errorf("load issue fallback: %w", ferr)
	}
	return static, portal.SourceFallback, nil
}

// List returns a filtered page of stored issues ordered by issue number descending.
func (s *Service) List(ctx context.Context, filter portal.IssueFilter) (Listing, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	filter.Offset = max(filter.Offset, 0)

	issues, total, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return Listing{}, fmt.Errorf("list issues: %w", err)
	}
	if issues == nil {
		issues = []portal.Issue{}
	}
	byYear, years := groupByYear(issues)
	return Listing{
		Issues:       issues,
		IssuesByYear: byYear,
		Years:        years,
		SpecialTypes: specialTypes(issues),
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}, nil
}

// Get looks up an issue by number when key is all digits and by ID otherwise.
// A missing issue yields portal.ErrNotFound.
func (s *Service) Get(ctx context.Context, key string) (Detail, error) {
	var (
		issue portal.Issue
		err   error
	)
	if digitsOnly.MatchString(key) {
		number, convErr := strconv.Atoi(key)
		if convErr != nil {
			return Detail{}, portal.ErrNotFound
		}
		issue, err = s.store.GetIssueByNumber(ctx, number)
	} else {
		issue, err = s.store.GetIssueByID(ctx, key)
	}
	if errors.Is(err, portal.ErrNotFound) {
		return Detail{}, portal.ErrNotFound
	}
	if err != nil {
		return Detail{}, fmt.Errorf("get issue %q: %w", key, err)
	}

	related, err := s.store.RelatedIssues(ctx, issue, RelatedLimit)
	if err != nil {
		return Detail{}, fmt.Errorf("related issues for %d: %w", issue.IssueNumber, err)
	}
	if related == nil {
		related = []portal.Issue{}
	}
	return Detail{Issue: issue, RelatedIssues: related}, nil
}

// groupByYear buckets issues by the part of their date before the first '-'.
// Years are returned newest first; non-numeric keys sort last.
func groupByYear(issues []portal.Issue) (map[string][]portal.Issue, []string) {
	byYear := make(map[string][]portal.Issue)
	for _, issue := range issues {
		year, _, _ := strings.Cut(issue.Date, "-")
		byYear[year] = append(byYear[year], issue)
	}
	years := make([]string, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool {
		a, aErr := strconv.Atoi(years[i])
		b, bErr := strconv.Atoi(years[j])
		switch {
		case aErr != nil && bErr != nil:
			return years[i] < years[j]
		case aErr != nil:
			return false
		case bErr != nil:
			return true
		}
		return a > b
	})
	return byYear, years
}

// specialTypes returns the distinct special types in first-seen order.
func specialTypes(issues []portal.Issue) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, issue := range issues {
		if issue.SpecialType == nil {
			continue
		}
		if _, ok := seen[*issue.SpecialType]; ok {
			continue
		}
		seen[*issue.SpecialType] = struct{}{}
		out = append(out, *issue.SpecialType)
	}
	return out
}
