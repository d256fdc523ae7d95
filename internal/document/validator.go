// Package document validates compliance document uploads before they reach
// the blob store.
package document

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/approval"
	"github.com/complyco/caseflow/internal/domain/entity"
)

// Config holds validation limits
type Config struct {
	// AllowedMimeTypes is the format allow-list (lowercase)
	AllowedMimeTypes []string

	// MaxSizeBytes applies to the LMRO and DLMRO stages
	MaxSizeBytes int64

	// MaxFinalSizeBytes applies to the CEO stage, whose consolidated dossier
	// is allowed to be larger
	MaxFinalSizeBytes int64

	// InspectPDF enables structural inspection of PDF content
	InspectPDF bool
}

// Validator checks uploaded documents against the format and per-stage size
// rules. It rejects before any byte is written to storage.
type Validator struct {
	cfg       Config
	inspector *PDFInspector
	logger    *zap.Logger
}

// NewValidator creates a document validator
func NewValidator(cfg Config, logger *zap.Logger) *Validator {
	v := &Validator{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.InspectPDF {
		v.inspector = NewPDFInspector(logger)
	}
	return v
}

// MaxSizeFor returns the upload limit for a stage
func (v *Validator) MaxSizeFor(stage entity.Stage) int64 {
	if stage == entity.StageCEO {
		return v.cfg.MaxFinalSizeBytes
	}
	return v.cfg.MaxSizeBytes
}

// Validate checks content against the allow-list and the stage's size limit.
// Returned errors wrap the workflow error taxonomy so callers can surface
// the specific refusal.
func (v *Validator) Validate(content []byte, fileName, mimeType string, stage entity.Stage) error {
	if len(content) == 0 {
		return fmt.Errorf("%w: empty upload", approval.ErrDocumentRequired)
	}

	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if !v.mimeAllowed(normalized) {
		return fmt.Errorf("%w: mime type %q not allowed", approval.ErrDocumentInvalid, mimeType)
	}

	limit := v.MaxSizeFor(stage)
	if int64(len(content)) > limit {
		return fmt.Errorf("%w: %d bytes exceeds stage limit of %d", approval.ErrDocumentInvalid, len(content), limit)
	}

	if v.inspector != nil && normalized == "application/pdf" {
		if err := v.inspector.Inspect(content); err != nil {
			v.logger.Info("PDF inspection rejected upload",
				zap.String("file_name", fileName),
				zap.Error(err))
			return fmt.Errorf("%w: %v", approval.ErrDocumentInvalid, err)
		}
	}

	return nil
}

func (v *Validator) mimeAllowed(mimeType string) bool {
	for _, allowed := range v.cfg.AllowedMimeTypes {
		if strings.ToLower(allowed) == mimeType {
			return true
		}
	}
	return false
}
