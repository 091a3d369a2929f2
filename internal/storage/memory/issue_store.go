package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vedicportal/portal/internal/portal"
)

// IssueStore keeps synced issues in a map keyed by issue number.
type IssueStore struct {
	mu     sync.RWMutex
	issues map[int]portal.Issue
}

// NewIssueStore constructs an empty IssueStore.
func NewIssueStore() *IssueStore {
	return &IssueStore{issues: make(map[int]portal.Issue)}
}

// IssueNumbers returns the set of stored issue numbers.
func (s *IssueStore) IssueNumbers(_ context.Context) (map[int]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	numbers := make(map[int]struct{}, len(s.issues))
	for n := range s.issues {
		numbers[n] = struct{}{}
	}
	return numbers, nil
}

// InsertIssues stores issues whose number is not yet present and returns the
// ones it stored. Existing numbers are left untouched.
func (s *IssueStore) InsertIssues(_ context.Context, issues []portal.Issue) ([]portal.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []portal.Issue
	for _, issue := range issues {
		if _, exists := s.issues[issue.IssueNumber]; exists {
			continue
		}
		s.issues[issue.IssueNumber] = issue
		inserted = append(inserted, issue)
	}
	return inserted, nil
}

// CountIssues returns the number of stored issues.
func (s *IssueStore) CountIssues(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issues), nil
}

// ListIssues returns a page of issues matching filter, newest number first,
// together with the total number of matches.
func (s *IssueStore) ListIssues(_ context.Context, filter portal.IssueFilter) ([]portal.Issue, int, error) {
	matched := s.sorted(func(issue portal.Issue) bool {
		if filter.Year != "" && !strings.HasPrefix(issue.Date, filter.Year+"-") {
			return false
		}
		if filter.SpecialOnly && !issue.IsSpecial {
			return false
		}
		if filter.SpecialType != "" && (issue.SpecialType == nil || *issue.SpecialType != filter.SpecialType) {
			return false
		}
		return true
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

// GetIssueByNumber looks up an issue by its number.
func (s *IssueStore) GetIssueByNumber(_ context.Context, number int) (portal.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.issues[number]
	if !ok {
		return portal.Issue{}, portal.ErrNotFound
	}
	return issue, nil
}

// GetIssueByID looks up an issue by its ID.
func (s *IssueStore) GetIssueByID(_ context.Context, id string) (portal.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, issue := range s.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return portal.Issue{}, portal.ErrNotFound
}

// RelatedIssues returns up to limit issues adjacent to issue by number or
// sharing its special type, excluding issue itself.
func (s *IssueStore) RelatedIssues(_ context.Context, issue portal.Issue, limit int) ([]portal.Issue, error) {
	related := s.sorted(func(candidate portal.Issue) bool {
		if candidate.ID == issue.ID {
			return false
		}
		if candidate.IssueNumber == issue.IssueNumber-1 || candidate.IssueNumber == issue.IssueNumber+1 {
			return true
		}
		return issue.SpecialType != nil && candidate.SpecialType != nil && *candidate.SpecialType == *issue.SpecialType
	})
	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func (s *IssueStore) sorted(keep func(portal.Issue) bool) []portal.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]portal.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if keep(issue) {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueNumber > out[j].IssueNumber })
	return out
}
