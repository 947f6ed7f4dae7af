package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/caseflow/caseflow/internal/metrics"
	"github.com/caseflow/caseflow/internal/planner"
)

// Start launches the polling worker. It returns immediately; the worker
// runs until Stop is called or ctx is cancelled. A handler must be
// subscribed first.
func (q *Queue) Start(ctx context.Context) error {
	if q.subscribedHandler() == nil {
		return fmt.Errorf("starting worker: no handler subscribed")
	}

	go q.pollLoop(ctx)

	log.Info().
		Dur("poll_interval", q.cfg.PollInterval).
		Int("batch_size", q.cfg.BatchSize).
		Msg("Queue worker started")

	return nil
}

// Stop shuts the worker down and waits for the current poll to finish.
func (q *Queue) Stop() {
	close(q.stopCh)
	<-q.doneCh
	log.Info().Msg("Queue worker stopped")
}

func (q *Queue) pollLoop(ctx context.Context) {
	defer close(q.doneCh)

	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.runOnce(ctx)
		}
	}
}

// runOnce is one poll: fire due cron schedules, then execute due one-shot
// jobs in priority order. Jobs run sequentially; SQLite has a single
// writer anyway.
func (q *Queue) runOnce(ctx context.Context) {
	now := q.clock.Now()

	if err := q.fireDueCrons(ctx, now); err != nil {
		log.Error().Err(err).Msg("Failed to fire due cron jobs")
	}

	jobs, err := q.store.GetDue(ctx, now, q.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query due jobs")
		return
	}

	for _, job := range jobs {
		q.execute(ctx, job)
	}

	if depth, err := q.store.CountPending(ctx); err == nil {
		metrics.UpdateQueueDepth(depth)
	}
}

// fireDueCrons enqueues a one-shot job for every schedule whose next run
// has passed, then arms the following run.
func (q *Queue) fireDueCrons(ctx context.Context, now time.Time) error {
	due, err := q.store.GetDueCrons(ctx, now)
	if err != nil {
		return fmt.Errorf("querying due cron jobs: %w", err)
	}

	for _, c := range due {
		schedule, err := cron.ParseStandard(c.Expression)
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", c.Expression, err)
		}

		job := &planner.Job{
			ExecutionTime: now,
			Type:          c.Type,
			Payload:       nil,
		}
		if err := q.CreateJob(ctx, job, "", nil); err != nil {
			return fmt.Errorf("enqueuing cron firing for %s: %w", c.Type, err)
		}

		next := schedule.Next(now)
		if err := q.store.UpdateCronRun(ctx, c.Type, now, next); err != nil {
			return fmt.Errorf("arming next run for %s: %w", c.Type, err)
		}

		log.Info().
			Str("type", string(c.Type)).
			Time("next_run", next).
			Msg("Cron job fired")
	}

	return nil
}

// execute runs one job through the subscribed handler, then settles it:
// completed on success, retried while attempts remain, failed otherwise.
func (q *Queue) execute(ctx context.Context, job *StoredJob) {
	handler := q.subscribedHandler()

	if err := q.store.MarkRunning(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job running")
		return
	}
	job.Attempt++

	q.incRunning(job.Type)
	defer q.decRunning(job.Type)

	start := time.Now()
	err := handler(ctx, &planner.Job{
		ExecutionTime: job.ExecuteAt,
		Type:          job.Type,
		Payload:       json.RawMessage(job.Payload),
	})
	duration := time.Since(start)

	if err == nil {
		if err := q.store.MarkCompleted(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job completed")
			return
		}
		metrics.RecordJobExecution(string(job.Type), "completed", duration)
		log.Info().
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Dur("duration", duration).
			Msg("Job completed")
		return
	}

	if job.Attempt < job.MaxAttempts {
		nextAt := q.clock.Now().Add(job.Backoff)
		if err := q.store.ScheduleRetry(ctx, job.ID, nextAt, err.Error()); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to schedule retry")
			return
		}
		metrics.RecordJobExecution(string(job.Type), "retried", duration)
		log.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Int("attempt", job.Attempt).
			Time("next_attempt", nextAt).
			Msg("Job failed, retry scheduled")
		return
	}

	if markErr := q.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		log.Error().Err(markErr).Str("job_id", job.ID).Msg("Failed to mark job failed")
		return
	}
	metrics.RecordJobExecution(string(job.Type), "failed", duration)
	log.Error().
		Err(err).
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Int("attempt", job.Attempt).
		Msg("Job failed permanently")
}
