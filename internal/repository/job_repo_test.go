package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/pkg/database"
)

func TestJobRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db, zap.NewNop())
	ctx := context.Background()

	job := seedJob(t, db, approval.JobStatusOperationsComplete)

	loaded, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Reference, loaded.Reference)
	assert.Equal(t, approval.JobStatusOperationsComplete, loaded.Status)
	assert.Equal(t, "ops-1", loaded.Assignee)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestJobRepository_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db, zap.NewNop())
	ctx := context.Background()

	job := seedJob(t, db, approval.JobStatusOperationsComplete)

	err := repo.UpdateStatus(ctx, job.ID, approval.JobStatusKYCPending, &entity.TimelineEntry{
		Status:      approval.JobStatusKYCPending,
		Description: "KYC workflow initialized",
		ActorID:     "admin",
	})
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.JobStatusKYCPending, loaded.Status)

	timeline, err := repo.GetTimeline(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, approval.JobStatusKYCPending, timeline[0].Status)
	assert.Equal(t, "admin", timeline[0].ActorID)
	assert.Equal(t, job.ID, timeline[0].JobID)
}

func TestJobRepository_UpdateStatusMissingJob(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db, zap.NewNop())

	err := repo.UpdateStatus(context.Background(), 999, approval.JobStatusKYCPending, nil)
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestJobRepository_TimelineOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db, zap.NewNop())
	ctx := context.Background()

	job := seedJob(t, db, approval.JobStatusOperationsComplete)

	statuses := []string{
		approval.JobStatusKYCPending,
		approval.JobStatusKYCLMROApproved,
		approval.JobStatusKYCDLMROApproved,
	}
	for _, status := range statuses {
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, status, &entity.TimelineEntry{
			Status: status,
		}))
	}

	timeline, err := repo.GetTimeline(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	for i, status := range statuses {
		assert.Equal(t, status, timeline[i].Status)
	}
}

func seedUser(t *testing.T, db *database.DB, id string, capabilities ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, lark_open_id) VALUES (?, ?, ?, ?)",
		id, "User "+id, id+"@example.com", "ou_"+id,
	)
	require.NoError(t, err)
	for _, c := range capabilities {
		_, err := db.ExecContext(ctx,
			"INSERT INTO user_capabilities (user_id, capability) VALUES (?, ?)",
			id, c,
		)
		require.NoError(t, err)
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	seedUser(t, db, "alice", "kyc.lmro", "bra.lmro")

	actor, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "alice", actor.ID)
	assert.Equal(t, "ou_alice", actor.LarkOpenID)
	assert.ElementsMatch(t,
		[]entity.Capability{"kyc.lmro", "bra.lmro"},
		actor.Capabilities)
	assert.True(t, actor.HasCapability("kyc.lmro"))
	assert.False(t, actor.IsAdmin())

	unknown, err := repo.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestUserRepository_ListByCapability(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	seedUser(t, db, "alice", "kyc.lmro")
	seedUser(t, db, "bob", "kyc.lmro", "kyc.dlmro")
	seedUser(t, db, "carol", "bra.lmro")

	actors, err := repo.ListByCapability(ctx, "kyc.lmro")
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "alice", actors[0].ID)
	assert.Equal(t, "bob", actors[1].ID)

	none, err := repo.ListByCapability(ctx, "kyc.ceo")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	ctx := context.Background()
	job := seedJob(t, db, approval.JobStatusOperationsComplete)

	n := &entity.Notification{
		JobID:       job.ID,
		Kind:        entity.KindKYC,
		RecipientID: "alice",
		Title:       "KYC review required",
		Description: "Job is awaiting LMRO review.",
		Category:    entity.NotificationCategoryWorkflow,
		Status:      entity.NotificationStatusPending,
	}
	require.NoError(t, repo.Create(ctx, n))
	assert.NotZero(t, n.ID)

	require.NoError(t, repo.MarkSent(ctx, n.ID))

	list, err := repo.ListByRecipient(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.NotificationStatusSent, list[0].Status)
	assert.NotNil(t, list[0].SentAt)

	failed := &entity.Notification{
		JobID:       job.ID,
		Kind:        entity.KindKYC,
		RecipientID: "alice",
		Title:       "KYC review required",
		Status:      entity.NotificationStatusPending,
	}
	require.NoError(t, repo.Create(ctx, failed))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, "no delivery channel"))

	list, err = repo.ListByRecipient(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
