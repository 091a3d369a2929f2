// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedicportal/portal/internal/portal"
)

const defaultTable = "pradipika_issues"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IssueStoreConfig controls the Postgres connection pool used for issue rows.
type IssueStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of *pgxpool.Pool the store needs.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// IssueStore reads and writes magazine issues in a single Postgres table.
type IssueStore struct {
	pool  pool
	table string
}

// NewIssueStore creates a Postgres-backed IssueStore using the provided config.
func NewIssueStore(ctx context.Context, cfg IssueStoreConfig) (*IssueStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &IssueStore{pool: p, table: table}, nil
}

// NewIssueStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewIssueStoreWithPool(p pool, table string) (*IssueStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &IssueStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *IssueStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the issue table when it does not exist yet.
func (s *IssueStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	issue_number INTEGER NOT NULL UNIQUE,
	title TEXT NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	pdf_url TEXT NOT NULL,
	pdf_filename TEXT NOT NULL,
	cover_image_url TEXT,
	is_special BOOLEAN NOT NULL DEFAULT FALSE,
	special_type TEXT,
	synced_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// IssueNumbers returns the set of stored issue numbers.
func (s *IssueStore) IssueNumbers(ctx context.Context) (map[int]struct{}, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT issue_number FROM %s", s.table))
	if err != nil {
		return nil, fmt.Errorf("query issue numbers: %w", err)
	}
	numbers, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("scan issue numbers: %w", err)
	}
	out := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		out[n] = struct{}{}
	}
	return out, nil
}

// InsertIssues writes issues in one transaction. Rows whose issue number
// already exists are skipped; the issues actually inserted are returned.
func (s *IssueStore) InsertIssues(ctx context.Context, issues []portal.Issue) ([]portal.Issue, error) {
	if len(issues) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	issue_number,
	title,
	date,
	pdf_url,
	pdf_filename,
	cover_image_url,
	is_special,
	special_type,
	synced_at,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (issue_number) DO NOTHING`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	var inserted []portal.Issue
	for _, issue := range issues {
		tag, err := tx.Exec(ctx, query,
			issue.ID,
			issue.IssueNumber,
			issue.Title,
			issue.Date,
			issue.PDFURL,
			issue.PDFFilename,
			nullable(issue.CoverImageURL),
			issue.IsSpecial,
			nullable(issue.SpecialType),
			issue.SyncedAt,
			issue.CreatedAt,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("insert issue %d: %w", issue.IssueNumber, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, issue)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// CountIssues returns the number of stored issues.
func (s *IssueStore) CountIssues(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count issues: %w", err)
	}
	return count, nil
}

// ListIssues returns a page of issues matching filter ordered by issue number
// descending, together with the total number of matches.
func (s *IssueStore) ListIssues(ctx context.Context, filter portal.IssueFilter) ([]portal.Issue, int, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Year != "" {
		args = append(args, filter.Year+"-%")
		clauses = append(clauses, fmt.Sprintf("date LIKE $%d", len(args)))
	}
	if filter.SpecialOnly {
		clauses = append(clauses, "is_special = TRUE")
	}
	if filter.SpecialType != "" {
		args = append(args, filter.SpecialType)
		clauses = append(clauses, fmt.Sprintf("special_type = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count filtered issues: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY issue_number DESC", s.selectColumns(), where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	issues, err := s.queryIssues(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	return issues, total, nil
}

// GetIssueByNumber looks up an issue by its number.
func (s *IssueStore) GetIssueByNumber(ctx context.Context, number int) (portal.Issue, error) {
	return s.getOne(ctx, "issue_number = $1", number)
}

// GetIssueByID looks up an issue by its ID.
func (s *IssueStore) GetIssueByID(ctx context.Context, id string) (portal.Issue, error) {
	return s.getOne(ctx, "id = $1", id)
}

// RelatedIssues returns up to limit issues adjacent to issue by number or
// sharing its special type, excluding issue itself.
func (s *IssueStore) RelatedIssues(ctx context.Context, issue portal.Issue, limit int) ([]portal.Issue, error) {
	specialType := ""
	if issue.SpecialType != nil {
		specialType = *issue.SpecialType
	}
	query := fmt.Sprintf(`%s
 WHERE id <> $1
   AND (issue_number IN ($2, $3) OR ($4 <> '' AND special_type = $4))
 ORDER BY issue_number DESC
 LIMIT $5`, s.selectColumns())
	related, err := s.queryIssues(ctx, query, issue.ID, issue.IssueNumber-1, issue.IssueNumber+1, specialType, limit)
	if err != nil {
		return nil, fmt.Errorf("related issues: %w", err)
	}
	return related, nil
}

func (s *IssueStore) selectColumns() string {
	return fmt.Sprintf(`SELECT id, issue_number, title, date, pdf_url, pdf_filename,
	COALESCE(cover_image_url, ''), is_special, COALESCE(special_type, ''), synced_at, created_at
FROM %s`, s.table)
}

func (s *IssueStore) getOne(ctx context.Context, predicate string, arg any) (portal.Issue, error) {
	query := fmt.Sprintf("%s WHERE %s", s.selectColumns(), predicate)
	issue, err := scanIssue(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return portal.Issue{}, portal.ErrNotFound
	}
	if err != nil {
		return portal.Issue{}, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

func (s *IssueStore) queryIssues(ctx context.Context, query string, args ...any) ([]portal.Issue, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (portal.Issue, error) {
		return scanIssue(row)
	})
}

func scanIssue(row pgx.Row) (portal.Issue, error) {
	var (
		issue       portal.Issue
		cover       string
		specialType string
	)
	err := row.Scan(
		&issue.ID,
		&issue.IssueNumber,
		&issue.Title,
		&issue.Date,
		&issue.PDFURL,
		&issue.PDFFilename,
		&cover,
		&issue.IsSpecial,
		&specialType,
		&issue.SyncedAt,
		&issue.CreatedAt,
	)
	if err != nil {
		return portal.Issue{}, err
	}
	if cover != "" {
		issue.CoverImageURL = &cover
	}
	if specialType != "" {
		issue.SpecialType = &specialType
	}
	return issue, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
