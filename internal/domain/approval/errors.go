package approval

import "errors"

// Caller-facing error taxonomy for workflow operations. All are recoverable
// and returned as typed results; handlers map them to specific responses so
// each reviewer role can see why their action was refused.
var (
	// ErrNotFound is returned when a job or approval does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidJobState is returned when the job is not in the status required to start a workflow
	ErrInvalidJobState = errors.New("job is not in the required state")

	// ErrAlreadyInitialized is returned when an approval already exists for the job and kind
	ErrAlreadyInitialized = errors.New("workflow already initialized")

	// ErrAlreadyRejected is returned when a rejected approval blocks re-initialization
	ErrAlreadyRejected = errors.New("workflow was rejected and cannot be restarted")

	// ErrStageMismatch is returned when the caller names a stage that is not current
	ErrStageMismatch = errors.New("stage does not match current stage")

	// ErrUnauthorized is returned when the actor lacks the capability for the stage
	ErrUnauthorized = errors.New("actor not authorized for stage")

	// ErrDocumentRequired is returned when an advance carries no document
	ErrDocumentRequired = errors.New("document is required")

	// ErrDocumentInvalid is returned when the document fails format or size validation
	ErrDocumentInvalid = errors.New("document is invalid")

	// ErrPredecessorNotApproved is returned when the preceding stage has no approval on record
	ErrPredecessorNotApproved = errors.New("preceding stage not approved")

	// ErrAlreadyFinalized is returned when the approval is completed or rejected
	ErrAlreadyFinalized = errors.New("approval already finalized")

	// ErrStorageUnavailable is returned when the blob store upload fails or times out
	ErrStorageUnavailable = errors.New("document storage unavailable")

	// ErrStaleWriteConflict is returned when a concurrent writer advanced the stage first
	ErrStaleWriteConflict = errors.New("stale write conflict")

	// ErrReasonRequired is returned when a rejection carries no reason
	ErrReasonRequired = errors.New("rejection reason is required")
)
