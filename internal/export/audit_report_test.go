package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/entity"
)

type mockJobRepo struct {
	job      *entity.Job
	timeline []*entity.TimelineEntry
}

func (m *mockJobRepo) GetByID(ctx context.Context, id int64) (*entity.Job, error) {
	return m.job, nil
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, jobID int64, status string, entry *entity.TimelineEntry) error {
	return nil
}

func (m *mockJobRepo) GetTimeline(ctx context.Context, jobID int64) ([]*entity.TimelineEntry, error) {
	return m.timeline, nil
}

type mockApprovalRepo struct {
	approvals []*entity.Approval
}

func (m *mockApprovalRepo) Create(ctx context.Context, a *entity.Approval) error { return nil }

func (m *mockApprovalRepo) GetByJobAndKind(ctx context.Context, jobID int64, kind entity.Kind) (*entity.Approval, error) {
	return nil, nil
}

func (m *mockApprovalRepo) GetByJobID(ctx context.Context, jobID int64) ([]*entity.Approval, error) {
	return m.approvals, nil
}

func (m *mockApprovalRepo) SaveTransition(ctx context.Context, a *entity.Approval, expectedStage entity.Stage) error {
	return nil
}

func fixtureApprovals(now time.Time) []*entity.Approval {
	signedOff := func(by string) entity.StageRecord {
		return entity.StageRecord{
			Approved:   true,
			ApprovedBy: by,
			ApprovedAt: &now,
			Notes:      "reviewed",
			Document: &entity.Document{
				FileName:   "assessment.pdf",
				UploadedBy: by,
			},
		}
	}

	completed := &entity.Approval{
		ID:           1,
		JobID:        42,
		Kind:         entity.KindKYC,
		Status:       entity.ApprovalStatusCompleted,
		CurrentStage: entity.StageCompleted,
		LMRO:         signedOff("alice"),
		DLMRO:        signedOff("bob"),
		CEO:          signedOff("carol"),
		CompletedAt:  &now,
	}

	rejected := &entity.Approval{
		ID:           2,
		JobID:        42,
		Kind:         entity.KindBRA,
		Status:       entity.ApprovalStatusRejected,
		CurrentStage: entity.StageRejected,
		LMRO:         signedOff("dave"),
		Rejection: &entity.Rejection{
			Reason:     "risk appetite exceeded",
			RejectedBy: "erin",
			RejectedAt: now,
		},
	}

	return []*entity.Approval{completed, rejected}
}

func TestWriteReport(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	jobs := &mockJobRepo{
		job: &entity.Job{
			ID:        42,
			Reference: "CASE-2024-042",
			Status:    "bra-rejected",
			Assignee:  "frank",
			CreatedAt: now,
		},
		timeline: []*entity.TimelineEntry{
			{Status: "kyc-pending", Description: "KYC review started", ActorID: "admin", CreatedAt: now},
			{Status: "kyc-complete", Description: "KYC review completed", ActorID: "carol", CreatedAt: now.Add(time.Hour)},
		},
	}
	approvals := &mockApprovalRepo{approvals: fixtureApprovals(now)}

	reporter := NewAuditReporter(jobs, approvals, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, reporter.WriteReport(context.Background(), 42, &buf))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetSummary, sheetStages, sheetTimeline}, f.GetSheetList())

	reference, err := f.GetCellValue(sheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "CASE-2024-042", reference)

	kycRow, err := f.GetCellValue(sheetSummary, "A8")
	require.NoError(t, err)
	assert.Equal(t, "KYC", kycRow)

	// three KYC stage rows, then the BRA block ending in its rejection row
	approvedBy, err := f.GetCellValue(sheetStages, "D2")
	require.NoError(t, err)
	assert.Equal(t, "alice", approvedBy)

	rejectionStage, err := f.GetCellValue(sheetStages, "B8")
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejectionStage)

	rejectionReason, err := f.GetCellValue(sheetStages, "F8")
	require.NoError(t, err)
	assert.Equal(t, "risk appetite exceeded", rejectionReason)

	timelineStatus, err := f.GetCellValue(sheetTimeline, "B3")
	require.NoError(t, err)
	assert.Equal(t, "kyc-complete", timelineStatus)
}

func TestWriteReportEmptyJob(t *testing.T) {
	jobs := &mockJobRepo{
		job: &entity.Job{ID: 7, Reference: "CASE-2024-007", Status: "operations-complete", CreatedAt: time.Now()},
	}
	approvals := &mockApprovalRepo{}

	reporter := NewAuditReporter(jobs, approvals, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, reporter.WriteReport(context.Background(), 7, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	status, err := f.GetCellValue(sheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "operations-complete", status)
}
