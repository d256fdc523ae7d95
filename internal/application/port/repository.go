package port

import (
	"context"

	"github.com/complyco/caseflow/internal/domain/entity"
)

// JobRepository defines persistence operations for Job
type JobRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Job, error)

	// UpdateStatus sets the job status and appends the timeline entry in the
	// same transaction, touching no other job fields.
	UpdateStatus(ctx context.Context, jobID int64, status string, entry *entity.TimelineEntry) error

	// GetTimeline returns the append-only history, oldest first
	GetTimeline(ctx context.Context, jobID int64) ([]*entity.TimelineEntry, error)
}

// ApprovalRepository defines persistence operations for Approval
type ApprovalRepository interface {
	// Create inserts a new approval. A record already existing for the same
	// (job, kind) is a caller error; implementations surface the unique
	// violation so the orchestrator can map it.
	Create(ctx context.Context, a *entity.Approval) error

	// GetByJobAndKind returns nil, nil when no approval exists
	GetByJobAndKind(ctx context.Context, jobID int64, kind entity.Kind) (*entity.Approval, error)

	// GetByJobID returns all approvals for a job, oldest first
	GetByJobID(ctx context.Context, jobID int64) ([]*entity.Approval, error)

	// SaveTransition persists the approval's mutated state with a conditional
	// write: the row is only updated while its stored current_stage still
	// equals expectedStage. A lost race reports ErrStaleWriteConflict.
	SaveTransition(ctx context.Context, a *entity.Approval, expectedStage entity.Stage) error
}

// UserRepository resolves actors and notification audiences
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Actor, error)

	// ListByCapability returns every user holding the capability
	ListByCapability(ctx context.Context, c entity.Capability) ([]*entity.Actor, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error)
}
