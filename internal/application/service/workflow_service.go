package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complyco/caseflow/internal/application/dispatcher"
	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// AdvanceRequest carries one stage submission
type AdvanceRequest struct {
	JobID    int64
	Kind     entity.Kind
	Stage    entity.Stage
	ActorID  string
	FileName string
	MimeType string
	Content  []byte
	Notes    string
}

// RejectRequest terminates a workflow with a reason
type RejectRequest struct {
	JobID   int64
	Kind    entity.Kind
	ActorID string
	Reason  string
}

// WorkflowService binds the approval machine to job lifecycle, storage and
// notification. Validation failures come back as the typed errors from the
// approval package; storage failures abort a transition, notification
// failures never do.
type WorkflowService interface {
	Initialize(ctx context.Context, jobID int64, kind entity.Kind, actorID string) (*entity.Approval, error)
	Advance(ctx context.Context, req AdvanceRequest) (*entity.Approval, error)
	Reject(ctx context.Context, req RejectRequest) (*entity.Approval, error)
	GetApproval(ctx context.Context, jobID int64, kind entity.Kind) (*entity.Approval, error)
	ListApprovals(ctx context.Context, jobID int64) ([]*entity.Approval, error)
}

type workflowServiceImpl struct {
	jobs          port.JobRepository
	approvals     port.ApprovalRepository
	users         port.UserRepository
	blobs         port.BlobStore
	validator     port.DocumentValidator
	dispatcher    dispatcher.Dispatcher
	uploadTimeout time.Duration
	logger        Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	jobs port.JobRepository,
	approvals port.ApprovalRepository,
	users port.UserRepository,
	blobs port.BlobStore,
	validator port.DocumentValidator,
	disp dispatcher.Dispatcher,
	uploadTimeout time.Duration,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		jobs:          jobs,
		approvals:     approvals,
		users:         users,
		blobs:         blobs,
		validator:     validator,
		dispatcher:    disp,
		uploadTimeout: uploadTimeout,
		logger:        logger,
	}
}

// Initialize starts a workflow for a job once its predecessor status holds
func (s *workflowServiceImpl) Initialize(ctx context.Context, jobID int64, kind entity.Kind, actorID string) (*entity.Approval, error) {
	return s.initialize(ctx, jobID, kind, actorID, "")
}

// initialize carries the correlation id linking a chained workflow to the
// completion event that triggered it ("" when operator-initiated).
func (s *workflowServiceImpl) initialize(ctx context.Context, jobID int64, kind entity.Kind, actorID, correlationID string) (*entity.Approval, error) {
	machine, err := approval.NewMachine(kind)
	if err != nil {
		return nil, err
	}
	cfg := machine.Config()

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != cfg.PredecessorJobStatus {
		return nil, fmt.Errorf("%w: %s requires job status %q, have %q",
			approval.ErrInvalidJobState, kind, cfg.PredecessorJobStatus, job.Status)
	}

	existing, err := s.approvals.GetByJobAndKind(ctx, jobID, kind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == entity.ApprovalStatusRejected {
			return nil, fmt.Errorf("%w: job %d kind %s", approval.ErrAlreadyRejected, jobID, kind)
		}
		return nil, fmt.Errorf("%w: currently at stage %s",
			approval.ErrAlreadyInitialized, existing.CurrentStage)
	}

	actor, err := s.resolveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := machine.NewApproval(jobID, now)
	if err := s.approvals.Create(ctx, a); err != nil {
		// The unique index closes the race between the existence check above
		// and this insert. Re-read so a rejected winner is reported the same
		// way as on the non-racing path.
		if errors.Is(err, approval.ErrAlreadyInitialized) {
			if winner, getErr := s.approvals.GetByJobAndKind(ctx, jobID, kind); getErr == nil &&
				winner != nil && winner.Status == entity.ApprovalStatusRejected {
				return nil, fmt.Errorf("%w: job %d kind %s", approval.ErrAlreadyRejected, jobID, kind)
			}
		}
		return nil, err
	}

	s.updateJob(ctx, jobID, cfg.PendingJobStatus, &entity.TimelineEntry{
		Status:      cfg.PendingJobStatus,
		Description: fmt.Sprintf("%s workflow initialized, awaiting LMRO review", kind),
		ActorID:     actor.ID,
	})

	payload := map[string]interface{}{
		"stage":               entity.StageLMRO.String(),
		"audience_capability": cfg.StageCapability[entity.StageLMRO].String(),
		"actor_id":            actor.ID,
	}
	var evt *event.Event
	if correlationID != "" {
		evt = event.NewEventWithCorrelation(event.TypeWorkflowInitialized, jobID, kind, payload, correlationID).
			WithPayload("chained", true)
	} else {
		evt = event.NewEvent(event.TypeWorkflowInitialized, jobID, kind, payload)
	}
	s.dispatcher.DispatchAsync(ctx, evt)

	s.logger.Info("Workflow initialized",
		"job_id", jobID, "kind", kind, "actor", actor.ID)
	return a, nil
}

// Advance applies one stage approval: validate, upload, commit, purge, notify
func (s *workflowServiceImpl) Advance(ctx context.Context, req AdvanceRequest) (*entity.Approval, error) {
	machine, err := approval.NewMachine(req.Kind)
	if err != nil {
		return nil, err
	}
	cfg := machine.Config()

	a, err := s.approvals.GetByJobAndKind(ctx, req.JobID, req.Kind)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no %s approval for job %d", approval.ErrNotFound, req.Kind, req.JobID)
	}

	actor, err := s.resolveActor(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	// Every precondition runs before the upload so a refused submission
	// never reaches the blob store.
	if err := machine.CheckAdvance(a, req.Stage, actor); err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: stage %s", approval.ErrDocumentRequired, req.Stage)
	}
	if err := s.validator.Validate(req.Content, req.FileName, req.MimeType, req.Stage); err != nil {
		return nil, err
	}

	upload, err := s.uploadDocument(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &entity.Document{
		URL:        upload.URL,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		StorageID:  upload.ObjectID,
		SizeBytes:  int64(len(req.Content)),
		UploadedAt: now,
		UploadedBy: actor.ID,
	}

	outcome, err := machine.Advance(ctx, a, req.Stage, actor, doc, req.Notes, now)
	if err != nil {
		s.discardUpload(ctx, upload.ObjectID)
		return nil, err
	}

	if err := s.approvals.SaveTransition(ctx, a, outcome.FromStage); err != nil {
		// A concurrent submission won the stage; nothing was committed for
		// this caller, so the fresh upload is discarded.
		s.discardUpload(ctx, upload.ObjectID)
		return nil, err
	}

	if outcome.SupersededDocument != nil {
		// Best-effort purge of the predecessor stage's document; the
		// workflow has already advanced.
		if err := s.blobs.Delete(ctx, outcome.SupersededDocument.StorageID); err != nil {
			s.logger.Error("Failed to delete superseded document",
				"job_id", req.JobID, "kind", req.Kind,
				"storage_id", outcome.SupersededDocument.StorageID,
				"error", err)
		}
	}

	description := fmt.Sprintf("%s approved %s stage", actor.ID, outcome.FromStage)
	if outcome.Completed {
		description = fmt.Sprintf("%s workflow completed by %s", req.Kind, actor.ID)
	}
	s.updateJob(ctx, req.JobID, outcome.JobStatus, &entity.TimelineEntry{
		Status:      outcome.JobStatus,
		Description: description,
		ActorID:     actor.ID,
	})

	evt := s.emitAdvanceEvents(ctx, req, cfg, outcome, actor)

	if outcome.Completed && cfg.Successor != "" {
		// Workflow continuity: completion of this pipeline opens the next
		// one, correlated with the completion event. Failure here must never
		// make the completed advance look failed, so it is logged and
		// swallowed.
		if _, err := s.initialize(ctx, req.JobID, cfg.Successor, actor.ID, evt.CorrelationID); err != nil {
			s.logger.Error("Failed to chain successor workflow",
				"job_id", req.JobID,
				"completed", req.Kind,
				"successor", cfg.Successor,
				"error", err)
		}
	}

	s.logger.Info("Stage advanced",
		"job_id", req.JobID, "kind", req.Kind,
		"from", outcome.FromStage, "to", outcome.ToStage,
		"actor", actor.ID)
	return a, nil
}

// Reject terminates a workflow, leaving stored documents as audit trail
func (s *workflowServiceImpl) Reject(ctx context.Context, req RejectRequest) (*entity.Approval, error) {
	machine, err := approval.NewMachine(req.Kind)
	if err != nil {
		return nil, err
	}

	a, err := s.approvals.GetByJobAndKind(ctx, req.JobID, req.Kind)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no %s approval for job %d", approval.ErrNotFound, req.Kind, req.JobID)
	}

	actor, err := s.resolveActor(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	outcome, err := machine.Reject(ctx, a, actor, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.approvals.SaveTransition(ctx, a, outcome.FromStage); err != nil {
		return nil, err
	}

	s.updateJob(ctx, req.JobID, outcome.JobStatus, &entity.TimelineEntry{
		Status:      outcome.JobStatus,
		Description: fmt.Sprintf("%s workflow rejected at %s stage: %s", req.Kind, outcome.FromStage, req.Reason),
		ActorID:     actor.ID,
	})

	evt := event.NewEvent(event.TypeWorkflowRejected, req.JobID, req.Kind, map[string]interface{}{
		"stage":               outcome.FromStage.String(),
		"reason":              req.Reason,
		"actor_id":            actor.ID,
		"audience_capability": entity.CapabilityAdmin.String(),
	})
	if job, jobErr := s.jobs.GetByID(ctx, req.JobID); jobErr == nil && job.Assignee != "" {
		evt = evt.WithPayload("audience_user", job.Assignee)
	}
	s.dispatcher.DispatchAsync(ctx, evt)

	s.logger.Info("Workflow rejected",
		"job_id", req.JobID, "kind", req.Kind,
		"stage", outcome.FromStage, "actor", actor.ID)
	return a, nil
}

// GetApproval retrieves the approval for a job and kind
func (s *workflowServiceImpl) GetApproval(ctx context.Context, jobID int64, kind entity.Kind) (*entity.Approval, error) {
	a, err := s.approvals.GetByJobAndKind(ctx, jobID, kind)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no %s approval for job %d", approval.ErrNotFound, kind, jobID)
	}
	return a, nil
}

// ListApprovals retrieves every approval record for a job
func (s *workflowServiceImpl) ListApprovals(ctx context.Context, jobID int64) ([]*entity.Approval, error) {
	return s.approvals.GetByJobID(ctx, jobID)
}

func (s *workflowServiceImpl) resolveActor(ctx context.Context, actorID string) (*entity.Actor, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: no actor", approval.ErrUnauthorized)
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: unknown actor %s", approval.ErrUnauthorized, actorID)
	}
	return actor, nil
}

// uploadDocument stores the submission under a stage-scoped folder with an
// explicit timeout. Any failure, including timeout, is StorageUnavailable
// and nothing has been committed, so the caller may retry the same stage.
func (s *workflowServiceImpl) uploadDocument(ctx context.Context, req AdvanceRequest) (*port.UploadResult, error) {
	uploadCtx := ctx
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	folder := fmt.Sprintf("jobs/%d/%s/%s", req.JobID, req.Kind, req.Stage)
	upload, err := s.blobs.Upload(uploadCtx, req.Content, port.UploadOptions{
		Folder:   folder,
		FileName: req.FileName,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: upload timed out", approval.ErrStorageUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", approval.ErrStorageUnavailable, err)
	}
	return upload, nil
}

// discardUpload removes a document whose transition never committed
func (s *workflowServiceImpl) discardUpload(ctx context.Context, objectID string) {
	if err := s.blobs.Delete(ctx, objectID); err != nil {
		s.logger.Error("Failed to discard uncommitted upload",
			"storage_id", objectID, "error", err)
	}
}

// updateJob writes the job substatus and timeline entry. The approval record
// is the source of truth for workflow state; a bookkeeping failure here is
// logged rather than failing an already-committed transition.
func (s *workflowServiceImpl) updateJob(ctx context.Context, jobID int64, status string, entry *entity.TimelineEntry) {
	if err := s.jobs.UpdateStatus(ctx, jobID, status, entry); err != nil {
		s.logger.Error("Failed to update job status",
			"job_id", jobID, "status", status, "error", err)
	}
}

// emitAdvanceEvents dispatches the transition's event and returns it so a
// chained workflow can correlate with it.
func (s *workflowServiceImpl) emitAdvanceEvents(ctx context.Context, req AdvanceRequest, cfg approval.KindConfig, outcome *approval.AdvanceOutcome, actor *entity.Actor) *event.Event {
	if outcome.Completed {
		evt := event.NewEvent(event.TypeWorkflowCompleted, req.JobID, req.Kind, map[string]interface{}{
			"actor_id":            actor.ID,
			"audience_capability": entity.CapabilityAdmin.String(),
		})
		if job, err := s.jobs.GetByID(ctx, req.JobID); err == nil && job.Assignee != "" {
			evt = evt.WithPayload("audience_user", job.Assignee)
		}
		s.dispatcher.DispatchAsync(ctx, evt)
		return evt
	}

	evt := event.NewEvent(event.TypeStageAdvanced, req.JobID, req.Kind, map[string]interface{}{
		"from_stage":          outcome.FromStage.String(),
		"to_stage":            outcome.ToStage.String(),
		"actor_id":            actor.ID,
		"audience_capability": cfg.StageCapability[outcome.ToStage].String(),
	})
	s.dispatcher.DispatchAsync(ctx, evt)
	return evt
}
