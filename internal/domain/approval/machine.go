package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/internal/domain/workflow"
)

// Machine enforces the three-stage review sequence for one workflow kind.
// It is pure domain logic: all I/O (blob store, persistence, notification)
// belongs to the orchestrator driving it.
type Machine struct {
	cfg KindConfig
}

// NewMachine creates a machine for the given workflow kind
func NewMachine(kind entity.Kind) (*Machine, error) {
	cfg, err := ConfigFor(kind)
	if err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg}, nil
}

// Kind returns the workflow kind this machine serves
func (m *Machine) Kind() entity.Kind {
	return m.cfg.Kind
}

// Config returns the pipeline configuration
func (m *Machine) Config() KindConfig {
	return m.cfg
}

// NewApproval returns a fresh approval at the first review stage
func (m *Machine) NewApproval(jobID int64, now time.Time) *entity.Approval {
	return &entity.Approval{
		JobID:        jobID,
		Kind:         m.cfg.Kind,
		Status:       entity.ApprovalStatusInProgress,
		CurrentStage: entity.StageLMRO,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// buildStageMachine configures the stage sequence. Advance walks forward one
// stage; Reject terminates from any review stage. Terminal states permit
// nothing.
func buildStageMachine(initial workflow.State) workflow.StateMachine {
	builder := workflow.NewBuilder()
	builder.Configure(workflow.StateLMRO).
		Permit(workflow.TriggerAdvance, workflow.StateDLMRO).
		Permit(workflow.TriggerReject, workflow.StateRejected)
	builder.Configure(workflow.StateDLMRO).
		Permit(workflow.TriggerAdvance, workflow.StateCEO).
		Permit(workflow.TriggerReject, workflow.StateRejected)
	builder.Configure(workflow.StateCEO).
		Permit(workflow.TriggerAdvance, workflow.StateCompleted).
		Permit(workflow.TriggerReject, workflow.StateRejected)
	return builder.Build(initial)
}

// AuthorizeStage checks that the actor may sign off the given review stage.
// Admins bypass the per-stage capability.
func (m *Machine) AuthorizeStage(actor *entity.Actor, stage entity.Stage) error {
	if actor == nil {
		return fmt.Errorf("%w: no actor", ErrUnauthorized)
	}
	if actor.IsAdmin() {
		return nil
	}
	capability, ok := m.cfg.StageCapability[stage]
	if !ok {
		return fmt.Errorf("%w: stage %s has no acting role", ErrUnauthorized, stage)
	}
	if !actor.HasCapability(capability) {
		return fmt.Errorf("%w: %s requires capability %s", ErrUnauthorized, stage, capability)
	}
	return nil
}

// authorizeReject allows the current stage's reviewer, holders of the
// dedicated reject capability, and admins.
func (m *Machine) authorizeReject(actor *entity.Actor, stage entity.Stage) error {
	if actor != nil && actor.HasCapability(entity.CapabilityReject) {
		return nil
	}
	return m.AuthorizeStage(actor, stage)
}

// CheckAdvance validates every advance precondition without mutating the
// approval. Orchestrators run it before uploading the document so a refused
// submission never reaches the blob store.
func (m *Machine) CheckAdvance(a *entity.Approval, stage entity.Stage, actor *entity.Actor) error {
	if a.IsFinalized() {
		return fmt.Errorf("%w: status is %s", ErrAlreadyFinalized, a.Status)
	}
	if a.CurrentStage != stage {
		return fmt.Errorf("%w: submitted for %s but current stage is %s", ErrStageMismatch, stage, a.CurrentStage)
	}
	if err := m.AuthorizeStage(actor, stage); err != nil {
		return err
	}
	if pred := PredecessorStage(stage); pred != "" {
		rec := a.StageRecordFor(pred)
		if rec == nil || !rec.Approved {
			return fmt.Errorf("%w: %s must approve before %s", ErrPredecessorNotApproved, pred, stage)
		}
	}
	return nil
}

// AdvanceOutcome describes the effect of a successful stage approval
type AdvanceOutcome struct {
	FromStage entity.Stage
	ToStage   entity.Stage
	Completed bool

	// SupersededDocument is the predecessor stage's document reference,
	// cleared from the record and due for best-effort purge from the blob
	// store. Nil for the first stage.
	SupersededDocument *entity.Document

	// JobStatus is the job substatus corresponding to this transition
	JobStatus string
}

// Advance applies one stage approval. The document must already be uploaded;
// the approval record takes ownership of the reference. Every precondition is
// re-checked so the mutation is valid even if CheckAdvance was skipped.
func (m *Machine) Advance(ctx context.Context, a *entity.Approval, stage entity.Stage, actor *entity.Actor, doc *entity.Document, notes string, now time.Time) (*AdvanceOutcome, error) {
	if err := m.CheckAdvance(a, stage, actor); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: stage %s", ErrDocumentRequired, stage)
	}

	machine := buildStageMachine(workflow.State(a.CurrentStage))
	if err := machine.Fire(ctx, workflow.TriggerAdvance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStageMismatch, err)
	}
	next := entity.Stage(machine.State())

	record := a.StageRecordFor(stage)
	record.Approved = true
	record.ApprovedBy = actor.ID
	approvedAt := now
	record.ApprovedAt = &approvedAt
	record.Notes = notes
	record.Document = doc

	outcome := &AdvanceOutcome{
		FromStage: stage,
		ToStage:   next,
	}

	// One live document at a time: the previous stage's upload is superseded
	// by this one. The metadata (approver, file name, storage id) stays on
	// the record.
	if pred := PredecessorStage(stage); pred != "" {
		predRecord := a.StageRecordFor(pred)
		outcome.SupersededDocument = predRecord.Document
		predRecord.Document = nil
	}

	a.CurrentStage = next
	a.UpdatedAt = now
	if next == entity.StageCompleted {
		a.Status = entity.ApprovalStatusCompleted
		completedAt := now
		a.CompletedAt = &completedAt
		outcome.Completed = true
		outcome.JobStatus = m.cfg.CompleteJobStatus
	} else {
		a.Status = entity.ApprovalStatusInProgress
		outcome.JobStatus = m.cfg.StageApprovedJobStatus[stage]
	}

	return outcome, nil
}

// RejectOutcome describes the effect of a rejection
type RejectOutcome struct {
	FromStage entity.Stage
	JobStatus string
}

// Reject terminates the approval from any review stage. Stored stage
// documents are left untouched as audit trail.
func (m *Machine) Reject(ctx context.Context, a *entity.Approval, actor *entity.Actor, reason string, now time.Time) (*RejectOutcome, error) {
	if a.IsFinalized() {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyFinalized, a.Status)
	}
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if err := m.authorizeReject(actor, a.CurrentStage); err != nil {
		return nil, err
	}

	machine := buildStageMachine(workflow.State(a.CurrentStage))
	if err := machine.Fire(ctx, workflow.TriggerReject); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyFinalized, err)
	}

	outcome := &RejectOutcome{
		FromStage: a.CurrentStage,
		JobStatus: m.cfg.RejectedJobStatus,
	}

	a.Status = entity.ApprovalStatusRejected
	a.CurrentStage = entity.StageRejected
	a.Rejection = &entity.Rejection{
		Reason:     reason,
		RejectedBy: actor.ID,
		RejectedAt: now,
	}
	a.UpdatedAt = now

	return outcome, nil
}
