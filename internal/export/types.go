// Package export renders a room's list as a printable document, optionally
// converts it to PDF, and archives the result in object storage.
package export

import (
	"errors"

	"github.com/knc219-a11y/pension-list/internal/model"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Request contains parameters for an export operation
type Request struct {
	Collection string
	Title      string // room code shown in the heading; derived from Collection when empty
	Format     Format
	Filter     model.Filter
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	URL      string // presigned download link when archived
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)
