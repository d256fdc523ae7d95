package document

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PDFInspector performs structural validation of PDF uploads using mupdf.
// A document that declares application/pdf but cannot be opened, or has no
// pages, is rejected before storage.
type PDFInspector struct {
	logger *zap.Logger
}

// NewPDFInspector creates a PDF inspector
func NewPDFInspector(logger *zap.Logger) *PDFInspector {
	return &PDFInspector{logger: logger}
}

// Inspect opens the document from memory and verifies it has at least one page
func (i *PDFInspector) Inspect(content []byte) error {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return fmt.Errorf("unreadable PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return fmt.Errorf("PDF has no pages")
	}

	return nil
}
