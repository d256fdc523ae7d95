package entity

import "time"

// Kind identifies which approval pipeline a record belongs to
type Kind string

const (
	KindKYC Kind = "KYC"
	KindBRA Kind = "BRA"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is one of the supported pipelines
func (k Kind) IsValid() bool {
	return k == KindKYC || k == KindBRA
}

// Stage is a sequential review checkpoint within an approval
type Stage string

const (
	StageLMRO      Stage = "lmro"
	StageDLMRO     Stage = "dlmro"
	StageCEO       Stage = "ceo"
	StageCompleted Stage = "completed"
	StageRejected  Stage = "rejected"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsReviewStage returns true for stages that require a human sign-off
func (s Stage) IsReviewStage() bool {
	return s == StageLMRO || s == StageDLMRO || s == StageCEO
}

// ApprovalStatus constants
const (
	ApprovalStatusPending    = "pending"
	ApprovalStatusInProgress = "in_progress"
	ApprovalStatusCompleted  = "completed"
	ApprovalStatusRejected   = "rejected"
)

// Document describes an uploaded compliance document. The bytes live in the
// blob store; the approval only holds the reference.
type Document struct {
	URL        string    `json:"url"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	StorageID  string    `json:"storage_id"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// StageRecord is the sign-off bundle for one review stage
type StageRecord struct {
	Approved   bool       `json:"approved"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Document   *Document  `json:"document,omitempty"`
}

// Rejection records why an approval was terminated
type Rejection struct {
	Reason     string    `json:"reason"`
	RejectedBy string    `json:"rejected_by"`
	RejectedAt time.Time `json:"rejected_at"`
}

// Approval is the per-job, per-kind review pipeline record. At most one
// exists per (job, kind); it is terminal once completed or rejected.
type Approval struct {
	ID           int64       `json:"id"`
	JobID        int64       `json:"job_id"`
	Kind         Kind        `json:"kind"`
	Status       string      `json:"status"`
	CurrentStage Stage       `json:"current_stage"`
	LMRO         StageRecord `json:"lmro"`
	DLMRO        StageRecord `json:"dlmro"`
	CEO          StageRecord `json:"ceo"`
	Rejection    *Rejection  `json:"rejection,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// StageRecordFor returns a pointer to the record slot for a review stage
func (a *Approval) StageRecordFor(stage Stage) *StageRecord {
	switch stage {
	case StageLMRO:
		return &a.LMRO
	case StageDLMRO:
		return &a.DLMRO
	case StageCEO:
		return &a.CEO
	default:
		return nil
	}
}

// IsFinalized returns true once the approval reached a terminal status
func (a *Approval) IsFinalized() bool {
	return a.Status == ApprovalStatusCompleted || a.Status == ApprovalStatusRejected
}
