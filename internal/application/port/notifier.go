package port

import (
	"context"

	"github.com/complyco/caseflow/internal/domain/entity"
)

// Message is the content of a workflow notification
type Message struct {
	Title       string
	Description string
	Category    string
	JobID       int64
	Kind        entity.Kind
}

// Notifier fans a message out to the selected audience. Fire-and-forget:
// implementations log delivery failures and never return them to the
// workflow path.
type Notifier interface {
	Notify(ctx context.Context, msg Message, audience entity.Audience)
}

// DocumentValidator checks an uploaded document before it is stored
type DocumentValidator interface {
	// Validate returns nil when the content is acceptable for the stage.
	// Errors wrap approval.ErrDocumentRequired or approval.ErrDocumentInvalid.
	Validate(content []byte, fileName, mimeType string, stage entity.Stage) error
}
