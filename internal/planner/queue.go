package planner

import "context"

// Handler executes a dequeued job. Registered by the worker runtime; the
// planner never dispatches jobs itself.
type Handler func(ctx context.Context, job *Job) error

// Queue is the contract the planner schedules against. It is implemented
// by the queue runtime (see internal/queue for the SQLite-backed one).
type Queue interface {
	// CreateJob enqueues job for execution at job.ExecutionTime. When
	// identity is non-empty and a job with that identity already exists,
	// the call is a no-op. This idempotent-create guarantee is load-bearing:
	// the planner relies on it instead of locking, and any implementation
	// must preserve it. params may be nil.
	CreateJob(ctx context.Context, job *Job, identity string, params *JobParams) error

	// CreateCronJob registers a recurring schedule.
	CreateCronJob(ctx context.Context, cron *CronJob) error

	// Subscribe registers the callback a worker uses to execute dequeued
	// jobs.
	Subscribe(handler Handler)

	// DeleteAllJobs removes every one-shot job. Used during full
	// re-synchronization.
	DeleteAllJobs(ctx context.Context) error

	// DeleteAllCronJobs removes every recurring schedule. Used during full
	// re-synchronization.
	DeleteAllCronJobs(ctx context.Context) error

	// DeleteJobsMatching cancels all jobs whose identity matches pattern.
	// A bare pattern matches as a substring, so passing an entity id
	// cancels every lead-time variant for that entity.
	DeleteJobsMatching(ctx context.Context, pattern string) error

	// DeleteExpiredJobs sweeps finished jobs past the retention window and
	// returns stats for observability.
	DeleteExpiredJobs(ctx context.Context) (*CleanupStats, error)

	// IsRunning reports whether a job of the given type is currently
	// executing.
	IsRunning(ctx context.Context, jobType JobType) (bool, error)
}
