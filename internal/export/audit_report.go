package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/domain/entity"
)

const (
	sheetSummary  = "Summary"
	sheetStages   = "Approval Stages"
	sheetTimeline = "Timeline"

	timeFormat = "2006-01-02 15:04:05"
)

// AuditReporter renders a job's full approval history into an xlsx workbook:
// one summary sheet, one row per review stage per pipeline, and the job
// timeline.
type AuditReporter struct {
	jobs      port.JobRepository
	approvals port.ApprovalRepository
	logger    *zap.Logger
}

// NewAuditReporter creates a new audit reporter
func NewAuditReporter(jobs port.JobRepository, approvals port.ApprovalRepository, logger *zap.Logger) *AuditReporter {
	return &AuditReporter{
		jobs:      jobs,
		approvals: approvals,
		logger:    logger,
	}
}

// WriteReport builds the workbook for a job and streams it to w
func (r *AuditReporter) WriteReport(ctx context.Context, jobID int64, w io.Writer) error {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	approvals, err := r.approvals.GetByJobID(ctx, jobID)
	if err != nil {
		return err
	}
	timeline, err := r.jobs.GetTimeline(ctx, jobID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := r.fillSummary(f, job, approvals); err != nil {
		return err
	}
	if err := r.fillStages(f, approvals); err != nil {
		return err
	}
	if err := r.fillTimeline(f, timeline); err != nil {
		return err
	}

	// excelize seeds every workbook with Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Audit report generated",
		zap.Int64("job_id", jobID),
		zap.Int("approvals", len(approvals)),
		zap.Int("timeline_entries", len(timeline)))
	return nil
}

func (r *AuditReporter) fillSummary(f *excelize.File, job *entity.Job, approvals []*entity.Approval) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	r.setCell(f, sheetSummary, "A1", "Job ID")
	r.setCell(f, sheetSummary, "B1", fmt.Sprintf("%d", job.ID))
	r.setCell(f, sheetSummary, "A2", "Reference")
	r.setCell(f, sheetSummary, "B2", job.Reference)
	r.setCell(f, sheetSummary, "A3", "Status")
	r.setCell(f, sheetSummary, "B3", job.Status)
	r.setCell(f, sheetSummary, "A4", "Assignee")
	r.setCell(f, sheetSummary, "B4", job.Assignee)
	r.setCell(f, sheetSummary, "A5", "Created")
	r.setCell(f, sheetSummary, "B5", job.CreatedAt.Format(timeFormat))

	row := 7
	r.setCell(f, sheetSummary, fmt.Sprintf("A%d", row), "Workflow")
	r.setCell(f, sheetSummary, fmt.Sprintf("B%d", row), "Status")
	r.setCell(f, sheetSummary, fmt.Sprintf("C%d", row), "Current Stage")
	r.setCell(f, sheetSummary, fmt.Sprintf("D%d", row), "Completed At")
	for _, a := range approvals {
		row++
		r.setCell(f, sheetSummary, fmt.Sprintf("A%d", row), a.Kind.String())
		r.setCell(f, sheetSummary, fmt.Sprintf("B%d", row), a.Status)
		r.setCell(f, sheetSummary, fmt.Sprintf("C%d", row), a.CurrentStage.String())
		r.setCell(f, sheetSummary, fmt.Sprintf("D%d", row), formatTimePtr(a.CompletedAt))
	}
	return nil
}

func (r *AuditReporter) fillStages(f *excelize.File, approvals []*entity.Approval) error {
	if _, err := f.NewSheet(sheetStages); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{"Workflow", "Stage", "Approved", "Approved By", "Approved At", "Notes", "Document", "Uploaded By"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		r.setCell(f, sheetStages, cell, h)
	}

	row := 1
	for _, a := range approvals {
		for _, stage := range []entity.Stage{entity.StageLMRO, entity.StageDLMRO, entity.StageCEO} {
			rec := a.StageRecordFor(stage)
			row++
			values := []string{
				a.Kind.String(),
				stage.String(),
				fmt.Sprintf("%t", rec.Approved),
				rec.ApprovedBy,
				formatTimePtr(rec.ApprovedAt),
				rec.Notes,
				documentLabel(rec.Document),
				documentUploader(rec.Document),
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				r.setCell(f, sheetStages, cell, v)
			}
		}
		if a.Rejection != nil {
			row++
			values := []string{
				a.Kind.String(),
				"rejected",
				"false",
				a.Rejection.RejectedBy,
				a.Rejection.RejectedAt.Format(timeFormat),
				a.Rejection.Reason,
				"", "",
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				r.setCell(f, sheetStages, cell, v)
			}
		}
	}
	return nil
}

func (r *AuditReporter) fillTimeline(f *excelize.File, timeline []*entity.TimelineEntry) error {
	if _, err := f.NewSheet(sheetTimeline); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	r.setCell(f, sheetTimeline, "A1", "Time")
	r.setCell(f, sheetTimeline, "B1", "Status")
	r.setCell(f, sheetTimeline, "C1", "Description")
	r.setCell(f, sheetTimeline, "D1", "Actor")
	for i, entry := range timeline {
		row := i + 2
		r.setCell(f, sheetTimeline, fmt.Sprintf("A%d", row), entry.CreatedAt.Format(timeFormat))
		r.setCell(f, sheetTimeline, fmt.Sprintf("B%d", row), entry.Status)
		r.setCell(f, sheetTimeline, fmt.Sprintf("C%d", row), entry.Description)
		r.setCell(f, sheetTimeline, fmt.Sprintf("D%d", row), entry.ActorID)
	}
	return nil
}

// setCell sets a cell value, logging rather than failing on error
func (r *AuditReporter) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}

func documentLabel(d *entity.Document) string {
	if d == nil {
		return ""
	}
	return d.FileName
}

func documentUploader(d *entity.Document) string {
	if d == nil {
		return ""
	}
	return d.UploadedBy
}
