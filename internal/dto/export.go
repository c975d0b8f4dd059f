package dto

// ExportFormat selects the rendering of a request export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries a rendered export ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}
