package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyco/caseflow/internal/domain/entity"
)

func lmroActor(kind entity.Kind) *entity.Actor {
	return actorWith(kind, entity.StageLMRO)
}

func actorWith(kind entity.Kind, stage entity.Stage) *entity.Actor {
	cfg, _ := ConfigFor(kind)
	return &entity.Actor{
		ID:           "user-" + stage.String(),
		Name:         "Reviewer",
		Capabilities: []entity.Capability{cfg.StageCapability[stage]},
	}
}

func adminActor() *entity.Actor {
	return &entity.Actor{
		ID:           "admin-1",
		Name:         "Admin",
		Capabilities: []entity.Capability{entity.CapabilityAdmin},
	}
}

func testDocument(stage entity.Stage, now time.Time) *entity.Document {
	return &entity.Document{
		URL:        "/documents/jobs/1/" + stage.String() + "/report.pdf",
		FileName:   "report.pdf",
		MimeType:   "application/pdf",
		StorageID:  "jobs/1/" + stage.String() + "/report.pdf",
		SizeBytes:  1024,
		UploadedAt: now,
		UploadedBy: "user-" + stage.String(),
	}
}

// advanceAll walks an approval through every stage, returning each outcome
func advanceAll(t *testing.T, m *Machine, a *entity.Approval) []*AdvanceOutcome {
	t.Helper()
	now := time.Now()
	var outcomes []*AdvanceOutcome
	for _, stage := range []entity.Stage{entity.StageLMRO, entity.StageDLMRO, entity.StageCEO} {
		actor := actorWith(m.Kind(), stage)
		outcome, err := m.Advance(context.Background(), a, stage, actor, testDocument(stage, now), "", now)
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func TestMachine_NewApproval(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)

	a := m.NewApproval(42, time.Now())
	assert.Equal(t, int64(42), a.JobID)
	assert.Equal(t, entity.KindKYC, a.Kind)
	assert.Equal(t, entity.StageLMRO, a.CurrentStage)
	assert.Equal(t, entity.ApprovalStatusInProgress, a.Status)
	assert.False(t, a.IsFinalized())
}

func TestMachine_UnknownKind(t *testing.T) {
	_, err := NewMachine(entity.Kind("AML"))
	assert.Error(t, err)
}

func TestMachine_AdvanceFullSequence(t *testing.T) {
	for _, kind := range []entity.Kind{entity.KindKYC, entity.KindBRA} {
		t.Run(kind.String(), func(t *testing.T) {
			m, err := NewMachine(kind)
			require.NoError(t, err)
			cfg := m.Config()

			a := m.NewApproval(1, time.Now())
			outcomes := advanceAll(t, m, a)

			assert.Equal(t, entity.StageDLMRO, outcomes[0].ToStage)
			assert.Equal(t, entity.StageCEO, outcomes[1].ToStage)
			assert.Equal(t, entity.StageCompleted, outcomes[2].ToStage)

			assert.False(t, outcomes[0].Completed)
			assert.False(t, outcomes[1].Completed)
			assert.True(t, outcomes[2].Completed)

			assert.Equal(t, cfg.StageApprovedJobStatus[entity.StageLMRO], outcomes[0].JobStatus)
			assert.Equal(t, cfg.CompleteJobStatus, outcomes[2].JobStatus)

			assert.Equal(t, entity.StageCompleted, a.CurrentStage)
			assert.Equal(t, entity.ApprovalStatusCompleted, a.Status)
			require.NotNil(t, a.CompletedAt)
			assert.True(t, a.IsFinalized())
		})
	}
}

func TestMachine_AdvanceSupersedesPredecessorDocument(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)

	a := m.NewApproval(1, time.Now())
	outcomes := advanceAll(t, m, a)

	// First stage has nothing to supersede
	assert.Nil(t, outcomes[0].SupersededDocument)

	// Each later stage purges the previous stage's document reference
	require.NotNil(t, outcomes[1].SupersededDocument)
	assert.Contains(t, outcomes[1].SupersededDocument.StorageID, entity.StageLMRO.String())
	require.NotNil(t, outcomes[2].SupersededDocument)
	assert.Contains(t, outcomes[2].SupersededDocument.StorageID, entity.StageDLMRO.String())

	// Only the final stage keeps a live document; metadata survives everywhere
	assert.Nil(t, a.LMRO.Document)
	assert.Nil(t, a.DLMRO.Document)
	assert.NotNil(t, a.CEO.Document)
	assert.True(t, a.LMRO.Approved)
	assert.NotEmpty(t, a.LMRO.ApprovedBy)
	assert.True(t, a.DLMRO.Approved)
}

func TestMachine_AdvanceStageMismatch(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)
	now := time.Now()

	a := m.NewApproval(1, now)

	// Skipping ahead to DLMRO while LMRO is current
	_, err = m.Advance(context.Background(), a, entity.StageDLMRO,
		actorWith(entity.KindKYC, entity.StageDLMRO), testDocument(entity.StageDLMRO, now), "", now)
	assert.ErrorIs(t, err, ErrStageMismatch)

	// Replaying a completed stage
	_, err = m.Advance(context.Background(), a, entity.StageLMRO,
		lmroActor(entity.KindKYC), testDocument(entity.StageLMRO, now), "", now)
	require.NoError(t, err)
	_, err = m.Advance(context.Background(), a, entity.StageLMRO,
		lmroActor(entity.KindKYC), testDocument(entity.StageLMRO, now), "", now)
	assert.ErrorIs(t, err, ErrStageMismatch)
}

func TestMachine_AdvanceAuthorization(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		actor   *entity.Actor
		wantErr error
	}{
		{
			name:    "nil actor",
			actor:   nil,
			wantErr: ErrUnauthorized,
		},
		{
			name: "no capabilities",
			actor: &entity.Actor{
				ID: "user-1", Name: "Nobody",
			},
			wantErr: ErrUnauthorized,
		},
		{
			name:    "wrong stage capability",
			actor:   actorWith(entity.KindKYC, entity.StageCEO),
			wantErr: ErrUnauthorized,
		},
		{
			name: "other pipeline capability",
			actor: &entity.Actor{
				ID: "user-1", Name: "BRA reviewer",
				Capabilities: []entity.Capability{entity.Capability("bra.lmro")},
			},
			wantErr: ErrUnauthorized,
		},
		{
			name:  "matching capability",
			actor: lmroActor(entity.KindKYC),
		},
		{
			name:  "admin bypass",
			actor: adminActor(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMachine(entity.KindKYC)
			require.NoError(t, err)

			a := m.NewApproval(1, now)
			_, err = m.Advance(context.Background(), a, entity.StageLMRO,
				tt.actor, testDocument(entity.StageLMRO, now), "", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMachine_AdvanceRequiresDocument(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)
	now := time.Now()

	a := m.NewApproval(1, now)
	_, err = m.Advance(context.Background(), a, entity.StageLMRO,
		lmroActor(entity.KindKYC), nil, "", now)
	assert.ErrorIs(t, err, ErrDocumentRequired)

	// The refused advance must not have mutated anything
	assert.Equal(t, entity.StageLMRO, a.CurrentStage)
	assert.False(t, a.LMRO.Approved)
}

func TestMachine_AdvanceAfterFinalized(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)
	now := time.Now()

	a := m.NewApproval(1, now)
	advanceAll(t, m, a)

	_, err = m.Advance(context.Background(), a, entity.StageCEO,
		actorWith(entity.KindKYC, entity.StageCEO), testDocument(entity.StageCEO, now), "", now)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestMachine_RejectFromEachStage(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		advances int
		stage    entity.Stage
	}{
		{name: "reject at LMRO", advances: 0, stage: entity.StageLMRO},
		{name: "reject at DLMRO", advances: 1, stage: entity.StageDLMRO},
		{name: "reject at CEO", advances: 2, stage: entity.StageCEO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMachine(entity.KindBRA)
			require.NoError(t, err)
			cfg := m.Config()

			a := m.NewApproval(1, now)
			stages := []entity.Stage{entity.StageLMRO, entity.StageDLMRO}
			for i := 0; i < tt.advances; i++ {
				_, err := m.Advance(context.Background(), a, stages[i],
					actorWith(entity.KindBRA, stages[i]), testDocument(stages[i], now), "", now)
				require.NoError(t, err)
			}

			outcome, err := m.Reject(context.Background(), a, actorWith(entity.KindBRA, tt.stage), "insufficient evidence", now)
			require.NoError(t, err)

			assert.Equal(t, tt.stage, outcome.FromStage)
			assert.Equal(t, cfg.RejectedJobStatus, outcome.JobStatus)
			assert.Equal(t, entity.StageRejected, a.CurrentStage)
			assert.Equal(t, entity.ApprovalStatusRejected, a.Status)
			require.NotNil(t, a.Rejection)
			assert.Equal(t, "insufficient evidence", a.Rejection.Reason)
			assert.True(t, a.IsFinalized())
		})
	}
}

func TestMachine_RejectPreservesDocuments(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)
	now := time.Now()

	a := m.NewApproval(1, now)
	_, err = m.Advance(context.Background(), a, entity.StageLMRO,
		lmroActor(entity.KindKYC), testDocument(entity.StageLMRO, now), "", now)
	require.NoError(t, err)

	_, err = m.Reject(context.Background(), a, actorWith(entity.KindKYC, entity.StageDLMRO), "mismatch in records", now)
	require.NoError(t, err)

	// Rejection keeps the audit trail intact
	assert.NotNil(t, a.LMRO.Document)
}

func TestMachine_RejectValidation(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)
	now := time.Now()

	t.Run("requires reason", func(t *testing.T) {
		a := m.NewApproval(1, now)
		_, err := m.Reject(context.Background(), a, lmroActor(entity.KindKYC), "", now)
		assert.ErrorIs(t, err, ErrReasonRequired)
	})

	t.Run("requires authorization", func(t *testing.T) {
		a := m.NewApproval(1, now)
		outsider := &entity.Actor{ID: "user-x", Name: "Outsider"}
		_, err := m.Reject(context.Background(), a, outsider, "bad documents", now)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("dedicated reject capability", func(t *testing.T) {
		a := m.NewApproval(1, now)
		rejecter := &entity.Actor{
			ID: "user-r", Name: "Compliance officer",
			Capabilities: []entity.Capability{entity.CapabilityReject},
		}
		_, err := m.Reject(context.Background(), a, rejecter, "regulatory hold", now)
		assert.NoError(t, err)
	})

	t.Run("finalized approval", func(t *testing.T) {
		a := m.NewApproval(1, now)
		advanceAll(t, m, a)
		_, err := m.Reject(context.Background(), a, adminActor(), "too late", now)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
	})
}

func TestPredecessorStage(t *testing.T) {
	assert.Equal(t, entity.Stage(""), PredecessorStage(entity.StageLMRO))
	assert.Equal(t, entity.StageLMRO, PredecessorStage(entity.StageDLMRO))
	assert.Equal(t, entity.StageDLMRO, PredecessorStage(entity.StageCEO))
	assert.Equal(t, entity.Stage(""), PredecessorStage(entity.StageCompleted))
}

func TestMachine_CheckAdvanceDoesNotMutate(t *testing.T) {
	m, err := NewMachine(entity.KindKYC)
	require.NoError(t, err)

	a := m.NewApproval(1, time.Now())
	require.NoError(t, m.CheckAdvance(a, entity.StageLMRO, lmroActor(entity.KindKYC)))

	assert.Equal(t, entity.StageLMRO, a.CurrentStage)
	assert.False(t, a.LMRO.Approved)
}
