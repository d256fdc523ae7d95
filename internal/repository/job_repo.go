package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/pkg/database"
)

// JobRepository handles job and timeline database operations
type JobRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *database.DB, logger *zap.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*entity.Job, error) {
	query := `
		SELECT id, reference, status, assignee, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`

	var job entity.Job
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.Reference,
		&job.Status,
		&job.Assignee,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: job %d", approval.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get job", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateStatus sets the job status and appends the timeline entry in one
// transaction. Only the status and updated_at columns are touched so
// concurrent writers of unrelated job fields are not clobbered.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID int64, status string, entry *entity.TimelineEntry) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()

		result, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?",
			status, now, jobID,
		)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: job %d", approval.ErrNotFound, jobID)
		}

		if entry != nil {
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = now
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO job_timeline (job_id, status, description, actor_id, created_at)
				VALUES (?, ?, ?, ?, ?)`,
				jobID, entry.Status, entry.Description, entry.ActorID, entry.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("append timeline entry: %w", err)
			}
			if id, err := res.LastInsertId(); err == nil {
				entry.ID = id
				entry.JobID = jobID
			}
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to update job status",
			zap.Int64("job_id", jobID),
			zap.String("status", status),
			zap.Error(err))
		return err
	}

	return nil
}

// GetTimeline returns a job's history, oldest first
func (r *JobRepository) GetTimeline(ctx context.Context, jobID int64) ([]*entity.TimelineEntry, error) {
	query := `
		SELECT id, job_id, status, description, actor_id, created_at
		FROM job_timeline
		WHERE job_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		r.logger.Error("Failed to get timeline", zap.Int64("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	defer rows.Close()

	var entries []*entity.TimelineEntry
	for rows.Next() {
		var entry entity.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.Status,
			&entry.Description,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Create inserts a new job (used by seeding and tests)
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (reference, status, assignee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		job.Reference, job.Status, job.Assignee, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create job", zap.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	job.ID = id
	return nil
}
