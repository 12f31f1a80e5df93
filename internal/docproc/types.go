// Package docproc turns uploaded documents into a uniform set of fillable
// form fields. It classifies a file by extension, dispatches to a
// format-specific extractor (PDF form widgets, Word text heuristics, or
// spreadsheet header rows), and normalizes the result so callers never
// branch on the source format.
package docproc

import (
	"errors"
	"fmt"

	"github.com/formpilot/formpilot/internal/models"
)

// Kind identifies a supported document format.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindWord        Kind = "word"
	KindSpreadsheet Kind = "spreadsheet"
	KindUnknown     Kind = "unknown"
)

// ErrUnsupportedType is returned when a file's extension maps to no known
// document kind. No parsing is attempted in that case.
var ErrUnsupportedType = errors.New("unsupported file type: please upload a PDF, XLSX, or DOCX file")

// ParseError reports that a byte stream could not be interpreted as a valid
// instance of its claimed format.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s document: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extraction is the raw output of one extractor before normalization.
type Extraction struct {
	Fields  []models.FormField
	Pages   int
	Meta    models.DocumentMetadata
	RawText string
}

// ProcessedDocument is the pipeline's complete output for one uploaded file.
// It is created fresh per call and never mutated afterwards; the preview
// handle is owned by the caller, which must release it once no longer shown.
type ProcessedDocument struct {
	Kind       Kind
	Fields     []models.FormField
	PreviewURL string
	PreviewKey string
	Pages      int
	Metadata   models.DocumentMetadata
	RawText    string
}
