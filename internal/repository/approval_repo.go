package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/pkg/database"
)

// ApprovalRepository handles approval database operations. Stage records and
// the rejection block are stored as JSON columns; the stage sequence itself
// is guarded by the conditional write in SaveTransition.
type ApprovalRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *database.DB, logger *zap.Logger) *ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new approval. The UNIQUE(job_id, kind) index surfaces a
// duplicate initialization as ErrAlreadyInitialized.
func (r *ApprovalRepository) Create(ctx context.Context, a *entity.Approval) error {
	lmro, dlmro, ceo, rejection, err := marshalRecords(a)
	if err != nil {
		return err
	}

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO approvals (
			job_id, kind, status, current_stage,
			lmro, dlmro, ceo, rejection, completed_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.JobID, a.Kind.String(), a.Status, a.CurrentStage.String(),
		lmro, dlmro, ceo, rejection, a.CompletedAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: job %d kind %s", approval.ErrAlreadyInitialized, a.JobID, a.Kind)
		}
		r.logger.Error("Failed to create approval",
			zap.Int64("job_id", a.JobID),
			zap.String("kind", a.Kind.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetByJobAndKind retrieves an approval, returning nil, nil when none exists
func (r *ApprovalRepository) GetByJobAndKind(ctx context.Context, jobID int64, kind entity.Kind) (*entity.Approval, error) {
	query := selectApproval + " WHERE job_id = ? AND kind = ?"

	a, err := r.scanApproval(r.db.QueryRowContext(ctx, query, jobID, kind.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval",
			zap.Int64("job_id", jobID),
			zap.String("kind", kind.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return a, nil
}

// GetByJobID returns all approvals for a job, oldest first
func (r *ApprovalRepository) GetByJobID(ctx context.Context, jobID int64) ([]*entity.Approval, error) {
	query := selectApproval + " WHERE job_id = ? ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*entity.Approval
	for rows.Next() {
		a, err := r.scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// SaveTransition persists a mutated approval with a conditional write keyed
// on the stage the caller read. A concurrent transition that already moved
// the stage leaves zero rows affected and reports ErrStaleWriteConflict, so
// exactly one of two racing writers wins.
func (r *ApprovalRepository) SaveTransition(ctx context.Context, a *entity.Approval, expectedStage entity.Stage) error {
	lmro, dlmro, ceo, rejection, err := marshalRecords(a)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE approvals
		SET status = ?, current_stage = ?,
			lmro = ?, dlmro = ?, ceo = ?, rejection = ?,
			completed_at = ?, updated_at = ?
		WHERE job_id = ? AND kind = ? AND current_stage = ?`,
		a.Status, a.CurrentStage.String(),
		lmro, dlmro, ceo, rejection,
		a.CompletedAt, a.UpdatedAt,
		a.JobID, a.Kind.String(), expectedStage.String(),
	)
	if err != nil {
		r.logger.Error("Failed to save approval transition",
			zap.Int64("job_id", a.JobID),
			zap.String("kind", a.Kind.String()),
			zap.Error(err))
		return fmt.Errorf("failed to save approval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %d kind %s expected stage %s",
			approval.ErrStaleWriteConflict, a.JobID, a.Kind, expectedStage)
	}
	return nil
}

const selectApproval = `
	SELECT id, job_id, kind, status, current_stage,
		lmro, dlmro, ceo, rejection, completed_at,
		created_at, updated_at
	FROM approvals`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ApprovalRepository) scanApproval(row rowScanner) (*entity.Approval, error) {
	var a entity.Approval
	var kind, stage string
	var lmro, dlmro, ceo string
	var rejection sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.JobID, &kind, &a.Status, &stage,
		&lmro, &dlmro, &ceo, &rejection, &completedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = entity.Kind(kind)
	a.CurrentStage = entity.Stage(stage)
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal([]byte(lmro), &a.LMRO); err != nil {
		return nil, fmt.Errorf("failed to decode lmro record: %w", err)
	}
	if err := json.Unmarshal([]byte(dlmro), &a.DLMRO); err != nil {
		return nil, fmt.Errorf("failed to decode dlmro record: %w", err)
	}
	if err := json.Unmarshal([]byte(ceo), &a.CEO); err != nil {
		return nil, fmt.Errorf("failed to decode ceo record: %w", err)
	}
	if rejection.Valid && rejection.String != "" {
		a.Rejection = &entity.Rejection{}
		if err := json.Unmarshal([]byte(rejection.String), a.Rejection); err != nil {
			return nil, fmt.Errorf("failed to decode rejection: %w", err)
		}
	}

	return &a, nil
}

func marshalRecords(a *entity.Approval) (lmro, dlmro, ceo string, rejection interface{}, err error) {
	encode := func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode stage record: %w", err)
		}
		return string(b), nil
	}

	if lmro, err = encode(a.LMRO); err != nil {
		return
	}
	if dlmro, err = encode(a.DLMRO); err != nil {
		return
	}
	if ceo, err = encode(a.CEO); err != nil {
		return
	}
	if a.Rejection != nil {
		var s string
		if s, err = encode(a.Rejection); err != nil {
			return
		}
		rejection = s
	}
	return
}
