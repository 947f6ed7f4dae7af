// Package queue is the SQLite-backed job queue runtime: durable one-shot
// jobs, recurring schedules, and a polling worker that dispatches due work
// to a subscribed handler. It implements the planner's Queue contract.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/caseflow/caseflow/internal/config"
	"github.com/caseflow/caseflow/internal/database"
	"github.com/caseflow/caseflow/internal/planner"
)

// Queue is a durable job queue over SQLite.
type Queue struct {
	store *Store
	cfg   config.QueueConfig
	clock planner.Clock

	mu      sync.Mutex
	handler planner.Handler
	running map[planner.JobType]int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a queue over the given database. Zero config values fall
// back to the package defaults.
func New(db *database.DB, cfg config.QueueConfig) *Queue {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = config.DefaultRetention
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = config.DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = config.DefaultRetryBackoff
	}

	return &Queue{
		store:   NewStore(db),
		cfg:     cfg,
		clock:   planner.SystemClock(),
		running: make(map[planner.JobType]int),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// CreateJob enqueues a job. A non-empty identity makes the create
// idempotent: a second create under the same identity is a no-op.
func (q *Queue) CreateJob(ctx context.Context, job *planner.Job, identity string, params *planner.JobParams) error {
	payload, err := marshalPayload(job.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	id := identity
	if id == "" {
		id = uuid.New().String()
	}

	stored := &StoredJob{
		ID:          id,
		HasIdentity: identity != "",
		Type:        job.Type,
		Payload:     payload,
		ExecuteAt:   job.ExecutionTime,
		MaxAttempts: q.cfg.MaxAttempts,
		Backoff:     q.cfg.RetryBackoff,
	}
	if params != nil {
		stored.Priority = params.Priority
		if params.MaxAttempts > 0 {
			stored.MaxAttempts = params.MaxAttempts
		}
		if params.Backoff > 0 {
			stored.Backoff = params.Backoff
		}
	}

	created, err := q.store.CreateJob(ctx, stored)
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	if !created {
		log.Debug().
			Str("job_id", id).
			Str("type", string(job.Type)).
			Msg("Job already exists, skipping")
		return nil
	}

	log.Debug().
		Str("job_id", id).
		Str("type", string(job.Type)).
		Time("execute_at", job.ExecutionTime).
		Msg("Job enqueued")

	return nil
}

// CreateCronJob registers a recurring schedule. The first run is computed
// from now, or from the activation date when that lies in the future.
func (q *Queue) CreateCronJob(ctx context.Context, cronJob *planner.CronJob) error {
	schedule, err := cron.ParseStandard(cronJob.Expression)
	if err != nil {
		return fmt.Errorf("parsing cron expression %q: %w", cronJob.Expression, err)
	}

	base := q.clock.Now()
	if cronJob.ActivationDate != nil && cronJob.ActivationDate.After(base) {
		base = *cronJob.ActivationDate
	}
	next := schedule.Next(base)

	stored := &StoredCron{
		Type:           cronJob.Type,
		Expression:     cronJob.Expression,
		Description:    cronJob.Description,
		ActivationDate: cronJob.ActivationDate,
		NextRun:        &next,
	}

	if err := q.store.UpsertCron(ctx, stored); err != nil {
		return fmt.Errorf("registering cron job: %w", err)
	}

	log.Debug().
		Str("type", string(cronJob.Type)).
		Str("expression", cronJob.Expression).
		Time("next_run", next).
		Msg("Cron job registered")

	return nil
}

// Subscribe registers the handler the worker dispatches due jobs to.
func (q *Queue) Subscribe(handler planner.Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// DeleteAllJobs removes every one-shot job.
func (q *Queue) DeleteAllJobs(ctx context.Context) error {
	return q.store.DeleteAll(ctx)
}

// DeleteAllCronJobs removes every recurring schedule.
func (q *Queue) DeleteAllCronJobs(ctx context.Context) error {
	return q.store.DeleteAllCrons(ctx)
}

// DeleteJobsMatching cancels jobs whose id matches pattern, in any
// status. A bare pattern (no glob metacharacters) matches as a substring.
func (q *Queue) DeleteJobsMatching(ctx context.Context, pattern string) error {
	g, err := compilePattern(pattern)
	if err != nil {
		return fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	deleted, err := q.store.DeleteMatching(ctx, g)
	if err != nil {
		return fmt.Errorf("deleting matching jobs: %w", err)
	}

	log.Debug().
		Str("pattern", pattern).
		Int("deleted", deleted).
		Msg("Matching jobs deleted")

	return nil
}

// DeleteExpiredJobs sweeps finished jobs past the retention window.
func (q *Queue) DeleteExpiredJobs(ctx context.Context) (*planner.CleanupStats, error) {
	cutoff := q.clock.Now().Add(-q.cfg.Retention)

	stats, err := q.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sweeping expired jobs: %w", err)
	}

	log.Debug().
		Int("scanned", stats.Scanned).
		Int("deleted", stats.Deleted).
		Time("cutoff", cutoff).
		Msg("Expired jobs swept")

	return stats, nil
}

// ListCrons returns every registered recurring schedule.
func (q *Queue) ListCrons(ctx context.Context) ([]*StoredCron, error) {
	return q.store.ListCrons(ctx)
}

// IsRunning reports whether a job of the given type is executing right now.
func (q *Queue) IsRunning(_ context.Context, jobType planner.JobType) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running[jobType] > 0, nil
}

func (q *Queue) incRunning(jobType planner.JobType) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running[jobType]++
}

func (q *Queue) decRunning(jobType planner.JobType) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running[jobType]--
	if q.running[jobType] <= 0 {
		delete(q.running, jobType)
	}
}

func (q *Queue) subscribedHandler() planner.Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handler
}

func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(payload)
}

// compilePattern turns a delete pattern into a glob matcher. Patterns
// without glob metacharacters are treated as substrings, so an entity id
// matches every identity derived from it.
func compilePattern(pattern string) (glob.Glob, error) {
	if !strings.ContainsAny(pattern, "*?[{\\") {
		pattern = "*" + pattern + "*"
	}
	return glob.Compile(pattern)
}
