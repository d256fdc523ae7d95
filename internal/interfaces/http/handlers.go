package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/application/service"
	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/internal/export"
)

// actorHeader carries the authenticated user id set by the auth gateway
const actorHeader = "X-Actor-ID"

// maxUploadBytes caps multipart reads before the validator sees the content
const maxUploadBytes = 64 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflows service.WorkflowService
	jobs      port.JobRepository
	reporter  *export.AuditReporter
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflows service.WorkflowService,
	jobs port.JobRepository,
	reporter *export.AuditReporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflows: workflows,
		jobs:      jobs,
		reporter:  reporter,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RejectRequest is the JSON body for workflow rejection
type RejectRequest struct {
	Reason string `json:"reason"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, err, "Failed to get job", "job_id", jobID)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: job})
}

// GetTimeline handles GET /api/v1/jobs/:id/timeline
func (h *Handlers) GetTimeline(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	timeline, err := h.jobs.GetTimeline(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, err, "Failed to get timeline", "job_id", jobID)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: timeline})
}

// ListApprovals handles GET /api/v1/jobs/:id/approvals
func (h *Handlers) ListApprovals(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	// Verify the job exists so an empty list is never ambiguous
	if _, err := h.jobs.GetByID(c.Request.Context(), jobID); err != nil {
		h.fail(c, err, "Failed to get job", "job_id", jobID)
		return
	}

	approvals, err := h.workflows.ListApprovals(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, err, "Failed to list approvals", "job_id", jobID)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: approvals})
}

// GetApproval handles GET /api/v1/jobs/:id/approvals/:kind
func (h *Handlers) GetApproval(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	a, err := h.workflows.GetApproval(c.Request.Context(), jobID, kind)
	if err != nil {
		h.fail(c, err, "Failed to get approval", "job_id", jobID, "kind", kind)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: a})
}

// InitializeWorkflow handles POST /api/v1/jobs/:id/approvals/:kind
func (h *Handlers) InitializeWorkflow(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	a, err := h.workflows.Initialize(c.Request.Context(), jobID, kind, actorID)
	if err != nil {
		h.fail(c, err, "Failed to initialize workflow", "job_id", jobID, "kind", kind)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: a})
}

// AdvanceStage handles POST /api/v1/jobs/:id/approvals/:kind/stages/:stage.
// The body is multipart form data with a "document" file and optional "notes".
func (h *Handlers) AdvanceStage(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	stage := entity.Stage(strings.ToLower(c.Param("stage")))
	if !stage.IsReviewStage() {
		h.badRequest(c, fmt.Sprintf("invalid stage %q", c.Param("stage")))
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		h.badRequest(c, "a document file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		h.badRequest(c, "document exceeds upload limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err, "Failed to open uploaded file", "job_id", jobID)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, maxUploadBytes+1)); err != nil {
		h.fail(c, err, "Failed to read uploaded file", "job_id", jobID)
		return
	}

	a, err := h.workflows.Advance(c.Request.Context(), service.AdvanceRequest{
		JobID:    jobID,
		Kind:     kind,
		Stage:    stage,
		ActorID:  actorID,
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  buf.Bytes(),
		Notes:    c.PostForm("notes"),
	})
	if err != nil {
		h.fail(c, err, "Failed to advance stage",
			"job_id", jobID, "kind", kind, "stage", stage)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: a})
}

// RejectWorkflow handles POST /api/v1/jobs/:id/approvals/:kind/reject
func (h *Handlers) RejectWorkflow(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	a, err := h.workflows.Reject(c.Request.Context(), service.RejectRequest{
		JobID:   jobID,
		Kind:    kind,
		ActorID: actorID,
		Reason:  req.Reason,
	})
	if err != nil {
		h.fail(c, err, "Failed to reject workflow", "job_id", jobID, "kind", kind)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: a})
}

// DownloadAuditReport handles GET /api/v1/jobs/:id/audit-report
func (h *Handlers) DownloadAuditReport(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reporter.WriteReport(c.Request.Context(), jobID, &buf); err != nil {
		h.fail(c, err, "Failed to generate audit report", "job_id", jobID)
		return
	}

	fileName := fmt.Sprintf("job-%d-audit-report.xlsx", jobID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

func (h *Handlers) jobID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, fmt.Sprintf("invalid job ID %q", idStr))
		return 0, false
	}
	return id, true
}

func (h *Handlers) kind(c *gin.Context) (entity.Kind, bool) {
	kind := entity.Kind(strings.ToUpper(c.Param("kind")))
	if !kind.IsValid() {
		h.badRequest(c, fmt.Sprintf("invalid workflow kind %q", c.Param("kind")))
		return "", false
	}
	return kind, true
}

func (h *Handlers) actor(c *gin.Context) (string, bool) {
	actorID := c.GetHeader(actorHeader)
	if actorID == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + actorHeader + " header",
		})
		return "", false
	}
	return actorID, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps a workflow error to its HTTP status and logs it
func (h *Handlers) fail(c *gin.Context, err error, msg string, keysAndValues ...interface{}) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
	} else {
		h.logger.Info(msg, append(keysAndValues, "error", err)...)
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// statusForError translates the workflow error taxonomy into HTTP statuses.
// State conflicts are 409 so clients can distinguish a stale view from a
// malformed request.
func statusForError(err error) int {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrDocumentRequired),
		errors.Is(err, approval.ErrDocumentInvalid),
		errors.Is(err, approval.ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, approval.ErrInvalidJobState),
		errors.Is(err, approval.ErrAlreadyInitialized),
		errors.Is(err, approval.ErrAlreadyRejected),
		errors.Is(err, approval.ErrStageMismatch),
		errors.Is(err, approval.ErrPredecessorNotApproved),
		errors.Is(err, approval.ErrAlreadyFinalized),
		errors.Is(err, approval.ErrStaleWriteConflict):
		return http.StatusConflict
	case errors.Is(err, approval.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
