package port

import "context"

// UploadOptions scope an upload to a workflow location and bound its size
type UploadOptions struct {
	// Folder is the stage/job-scoped path segment, e.g. "jobs/42/kyc/lmro"
	Folder string

	// FileName is the original client file name, kept for the stored name
	FileName string

	// MaxSizeBytes rejects oversized content before any write
	MaxSizeBytes int64
}

// UploadResult references a stored document
type UploadResult struct {
	URL      string
	ObjectID string
}

// BlobStore is the object storage backing uploaded documents. Upload must
// fully succeed before any approval state is committed; Delete is best-effort.
type BlobStore interface {
	Upload(ctx context.Context, content []byte, opts UploadOptions) (*UploadResult, error)
	Delete(ctx context.Context, objectID string) error
}
