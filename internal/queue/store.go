package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/caseflow/caseflow/internal/database"
	"github.com/caseflow/caseflow/internal/planner"
)

// Job statuses.
const (
	statusPending   = "pending"
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// StoredJob is a queued job as persisted, with its retry bookkeeping.
type StoredJob struct {
	ID          string
	HasIdentity bool
	Type        planner.JobType
	Payload     []byte
	ExecuteAt   time.Time
	Priority    int
	Attempt     int
	MaxAttempts int
	Backoff     time.Duration
	Status      string
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoredCron is a registered recurring schedule with its computed run times.
type StoredCron struct {
	Type           planner.JobType
	Expression     string
	Description    string
	ActivationDate *time.Time
	NextRun        *time.Time
	LastRun        *time.Time
}

// Store handles database operations for queued jobs and cron schedules.
type Store struct {
	db *database.DB
}

// NewStore creates a new queue store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// CreateJob inserts a job. When a job with the same id already exists the
// insert is silently skipped and created is false; this is what backs the
// idempotent-create guarantee of the queue contract.
func (s *Store) CreateJob(ctx context.Context, job *StoredJob) (created bool, err error) {
	now := database.Now()

	query := `
		INSERT INTO queue_jobs (id, has_identity, type, payload, execute_at, priority, attempt, max_attempts, backoff_ms, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		job.ID,
		boolToInt(job.HasIdentity),
		string(job.Type),
		string(job.Payload),
		job.ExecuteAt.UTC().Format(time.RFC3339),
		job.Priority,
		job.MaxAttempts,
		job.Backoff.Milliseconds(),
		statusPending,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("inserting job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}

	return affected > 0, nil
}

// GetDue retrieves pending jobs whose execution time has passed, highest
// priority first.
func (s *Store) GetDue(ctx context.Context, now time.Time, limit int) ([]*StoredJob, error) {
	query := `
		SELECT id, has_identity, type, payload, execute_at, priority, attempt, max_attempts, backoff_ms, status, last_error, created_at, updated_at
		FROM queue_jobs
		WHERE status = ? AND execute_at <= ?
		ORDER BY priority DESC, execute_at ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, statusPending, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("querying due jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// MarkRunning transitions a job to running and bumps its attempt count.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	query := `
		UPDATE queue_jobs
		SET status = ?, attempt = attempt + 1, updated_at = ?
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, statusRunning, database.Now(), id); err != nil {
		return fmt.Errorf("marking job running: %w", err)
	}

	return nil
}

// MarkCompleted transitions a job to completed.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	query := `
		UPDATE queue_jobs
		SET status = ?, last_error = NULL, updated_at = ?
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, statusCompleted, database.Now(), id); err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}

	return nil
}

// MarkFailed transitions a job to failed, keeping the last error for
// manual replay.
func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE queue_jobs
		SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, statusFailed, errMsg, database.Now(), id); err != nil {
		return fmt.Errorf("marking job failed: %w", err)
	}

	return nil
}

// ScheduleRetry puts a job back to pending with a later execution time.
func (s *Store) ScheduleRetry(ctx context.Context, id string, nextAt time.Time, errMsg string) error {
	query := `
		UPDATE queue_jobs
		SET status = ?, execute_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query,
		statusPending,
		nextAt.UTC().Format(time.RFC3339),
		errMsg,
		database.Now(),
		id,
	); err != nil {
		return fmt.Errorf("scheduling retry: %w", err)
	}

	return nil
}

// DeleteAll removes every job.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_jobs`); err != nil {
		return fmt.Errorf("deleting jobs: %w", err)
	}
	return nil
}

// DeleteMatching removes jobs whose id matches g, whatever their status.
// Finished rows must go too: the id is the idempotency key, so a completed
// reminder left behind would block recreation under the same identity.
// Matching happens here rather than in SQL because the pattern language is
// glob, not LIKE.
func (s *Store) DeleteMatching(ctx context.Context, g glob.Glob) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM queue_jobs`)
	if err != nil {
		return 0, fmt.Errorf("querying job ids: %w", err)
	}
	defer rows.Close()

	var matched []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scanning job id: %w", err)
		}
		if g.Match(id) {
			matched = append(matched, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating job ids: %w", err)
	}

	for _, id := range matched {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_jobs WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting job %s: %w", id, err)
		}
	}

	return len(matched), nil
}

// DeleteFinishedBefore removes completed and failed jobs last touched
// before cutoff, returning sweep stats.
func (s *Store) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (*planner.CleanupStats, error) {
	stats := &planner.CleanupStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_jobs WHERE status IN (?, ?)`,
		statusCompleted, statusFailed,
	).Scan(&stats.Scanned)
	if err != nil {
		return nil, fmt.Errorf("counting finished jobs: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_jobs WHERE status IN (?, ?) AND updated_at < ?`,
		statusCompleted, statusFailed, cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("deleting expired jobs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}
	stats.Deleted = int(deleted)

	return stats, nil
}

// CountPending returns the number of jobs waiting to run.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_jobs WHERE status = ?`, statusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pending jobs: %w", err)
	}
	return count, nil
}

// Get retrieves a job by id.
func (s *Store) Get(ctx context.Context, id string) (*StoredJob, error) {
	query := `
		SELECT id, has_identity, type, payload, execute_at, priority, attempt, max_attempts, backoff_ms, status, last_error, created_at, updated_at
		FROM queue_jobs
		WHERE id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying job: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", id)
	}

	return jobs[0], nil
}

// UpsertCron registers or refreshes a recurring schedule.
func (s *Store) UpsertCron(ctx context.Context, cron *StoredCron) error {
	now := database.Now()

	query := `
		INSERT INTO queue_cron_jobs (type, expression, description, activation_date, next_run, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type) DO UPDATE SET
			expression = excluded.expression,
			description = excluded.description,
			activation_date = excluded.activation_date,
			next_run = excluded.next_run,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(cron.Type),
		cron.Expression,
		cron.Description,
		nullableTime(cron.ActivationDate),
		nullableTime(cron.NextRun),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting cron job: %w", err)
	}

	return nil
}

// GetDueCrons retrieves schedules whose next run has passed.
func (s *Store) GetDueCrons(ctx context.Context, now time.Time) ([]*StoredCron, error) {
	query := `
		SELECT type, expression, description, activation_date, next_run, last_run
		FROM queue_cron_jobs
		WHERE next_run IS NOT NULL AND next_run <= ?
		ORDER BY next_run ASC
	`

	rows, err := s.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying due cron jobs: %w", err)
	}
	defer rows.Close()

	return scanCrons(rows)
}

// ListCrons retrieves every registered schedule.
func (s *Store) ListCrons(ctx context.Context) ([]*StoredCron, error) {
	query := `
		SELECT type, expression, description, activation_date, next_run, last_run
		FROM queue_cron_jobs
		ORDER BY type ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cron jobs: %w", err)
	}
	defer rows.Close()

	return scanCrons(rows)
}

// UpdateCronRun records a firing and arms the next one.
func (s *Store) UpdateCronRun(ctx context.Context, jobType planner.JobType, lastRun, nextRun time.Time) error {
	query := `
		UPDATE queue_cron_jobs
		SET last_run = ?, next_run = ?, updated_at = ?
		WHERE type = ?
	`

	_, err := s.db.ExecContext(ctx, query,
		lastRun.UTC().Format(time.RFC3339),
		nextRun.UTC().Format(time.RFC3339),
		database.Now(),
		string(jobType),
	)
	if err != nil {
		return fmt.Errorf("updating cron run: %w", err)
	}

	return nil
}

// DeleteAllCrons removes every recurring schedule.
func (s *Store) DeleteAllCrons(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_cron_jobs`); err != nil {
		return fmt.Errorf("deleting cron jobs: %w", err)
	}
	return nil
}

func scanJobs(rows *sql.Rows) ([]*StoredJob, error) {
	var jobs []*StoredJob

	for rows.Next() {
		var job StoredJob
		var hasIdentity int
		var jobType, payload, executeAt, createdAt, updatedAt string
		var backoffMs int64
		var lastError sql.NullString

		err := rows.Scan(
			&job.ID,
			&hasIdentity,
			&jobType,
			&payload,
			&executeAt,
			&job.Priority,
			&job.Attempt,
			&job.MaxAttempts,
			&backoffMs,
			&job.Status,
			&lastError,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}

		job.HasIdentity = hasIdentity == 1
		job.Type = planner.JobType(jobType)
		job.Payload = []byte(payload)
		job.Backoff = time.Duration(backoffMs) * time.Millisecond
		if lastError.Valid {
			job.LastError = lastError.String
		}

		t, err := time.Parse(time.RFC3339, executeAt)
		if err != nil {
			return nil, fmt.Errorf("parsing execute_at: %w", err)
		}
		job.ExecuteAt = t

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			job.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			job.UpdatedAt = t
		}

		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}

	return jobs, nil
}

func scanCrons(rows *sql.Rows) ([]*StoredCron, error) {
	var crons []*StoredCron

	for rows.Next() {
		var cron StoredCron
		var jobType string
		var activation, nextRun, lastRun sql.NullString

		err := rows.Scan(
			&jobType,
			&cron.Expression,
			&cron.Description,
			&activation,
			&nextRun,
			&lastRun,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning cron row: %w", err)
		}

		cron.Type = planner.JobType(jobType)

		if activation.Valid {
			if t, err := time.Parse(time.RFC3339, activation.String); err == nil {
				cron.ActivationDate = &t
			}
		}
		if nextRun.Valid {
			if t, err := time.Parse(time.RFC3339, nextRun.String); err == nil {
				cron.NextRun = &t
			}
		}
		if lastRun.Valid {
			if t, err := time.Parse(time.RFC3339, lastRun.String); err == nil {
				cron.LastRun = &t
			}
		}

		crons = append(crons, &cron)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cron rows: %w", err)
	}

	return crons, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
