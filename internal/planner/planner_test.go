package planner

import (
	"context"
	"strings"
	"time"
)

// fixedClock pins now() so the day-threshold arithmetic is deterministic.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// fakeQueue records every call for assertions and honors the
// idempotent-create guarantee the same way the real runtime does.
type fakeQueue struct {
	calls      []string
	jobs       map[string]*Job
	params     map[string]*JobParams
	crons      []CronJob
	createErr  error
	deleteErr  error
	cronErr    error
	cleanup    CleanupStats
	cleanupErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		jobs:   make(map[string]*Job),
		params: make(map[string]*JobParams),
	}
}

func (q *fakeQueue) CreateJob(_ context.Context, job *Job, identity string, params *JobParams) error {
	if q.createErr != nil {
		return q.createErr
	}

	q.calls = append(q.calls, "create:"+identity)

	if _, exists := q.jobs[identity]; identity != "" && exists {
		// Idempotent create: second call with the same identity is a no-op.
		return nil
	}

	q.jobs[identity] = job
	q.params[identity] = params

	return nil
}

func (q *fakeQueue) CreateCronJob(_ context.Context, cron *CronJob) error {
	if q.cronErr != nil {
		return q.cronErr
	}
	q.calls = append(q.calls, "cron:"+string(cron.Type))
	q.crons = append(q.crons, *cron)
	return nil
}

func (q *fakeQueue) Subscribe(Handler) {}

func (q *fakeQueue) DeleteAllJobs(context.Context) error {
	q.calls = append(q.calls, "delete_all_jobs")
	q.jobs = make(map[string]*Job)
	return nil
}

func (q *fakeQueue) DeleteAllCronJobs(context.Context) error {
	q.calls = append(q.calls, "delete_all_crons")
	q.crons = nil
	return nil
}

func (q *fakeQueue) DeleteJobsMatching(_ context.Context, pattern string) error {
	if q.deleteErr != nil {
		return q.deleteErr
	}

	q.calls = append(q.calls, "delete:"+pattern)

	for identity := range q.jobs {
		if strings.Contains(identity, pattern) {
			delete(q.jobs, identity)
		}
	}

	return nil
}

func (q *fakeQueue) DeleteExpiredJobs(context.Context) (*CleanupStats, error) {
	if q.cleanupErr != nil {
		return nil, q.cleanupErr
	}
	stats := q.cleanup
	return &stats, nil
}

func (q *fakeQueue) IsRunning(context.Context, JobType) (bool, error) {
	return false, nil
}

// recordingReporter captures forwarded errors for assertions.
type recordingReporter struct {
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) CaptureError(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
