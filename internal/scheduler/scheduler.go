// Package scheduler runs the periodic blog refresh and magazine sync jobs.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/pradipika"
)

// Job names.
const (
	JobBlogRefresh   = "blog-refresh"
	JobPradipikaSync = "pradipika-sync"
)

// Job is one named cron entry. An empty Spec disables the job.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler wraps a cron runner whose jobs share one base context.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a Scheduler in the given timezone. Panicking jobs are recovered
// and logged.
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	logger = logging.OrNop(logger).Named("scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
		),
		location: loc,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
	}, nil
}

// Add registers job, replacing any earlier job of the same name.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job name and func are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job.Name]; ok {
		s.cron.Remove(id)
		delete(s.entries, job.Name)
	}
	if job.Spec == "" {
		s.logger.Info("job disabled", zap.String("job", job.Name))
		return nil
	}
	id, err := s.cron.AddFunc(job.Spec, s.wrap(job))
	if err != nil {
		return fmt.Errorf("add %s job: %w", job.Name, err)
	}
	s.entries[job.Name] = id
	s.logger.Info("job scheduled",
		zap.String("job", job.Name),
		zap.String("cron", job.Spec),
		zap.String("timezone", s.location.String()),
	)
	return nil
}

// Jobs lists the names of scheduled jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels the jobs' context and waits for running
// jobs to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		start := time.Now()
		err := job.Run(s.ctx)
		if err != nil {
			s.logger.Warn("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		s.logger.Info("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	}
}

// BlogRefresher refreshes the cached blog list.
type BlogRefresher interface {
	Refresh(ctx context.Context) ([]portal.BlogEntry, error)
}

// IssueSyncer syncs the magazine directory into storage.
type IssueSyncer interface {
	Sync(ctx context.Context) (pradipika.SyncResult, error)
}

// BlogRefreshJob refreshes the blog cache on spec.
func BlogRefreshJob(spec string, refresher BlogRefresher) Job {
	return Job{
		Name: JobBlogRefresh,
		Spec: spec,
		Run: func(ctx context.Context) error {
			_, err := refresher.Refresh(ctx)
			return err
		},
	}
}

// PradipikaSyncJob syncs magazine issues on spec.
func PradipikaSyncJob(spec string, syncer IssueSyncer) Job {
	return Job{
		Name: JobPradipikaSync,
		Spec: spec,
		Run: func(ctx context.Context) error {
			_, err := syncer.Sync(ctx)
			return err
		},
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
