package constants

// ============================================================================
// UPLOAD ERRORS
// ============================================================================

const (
	ErrUnsupportedFileType        = "Unsupported file type. Allowed extensions are .csv, .xlsx and .xls"
	ErrFileTooLarge               = "File exceeds the upload size limit"
	ErrFileRequired               = "A file is required in the multipart form"
	ErrInvalidMode                = "Invalid mode. Use add, append or replace"
	ErrFailedToParseMultipartForm = "Failed to parse multipart form"
	ErrFileParseFailed            = "Could not read the uploaded file"
	ErrIngestFailed               = "Failed to load the batch. No partial data was persisted"
)

// ============================================================================
// UNDO / HISTORY ERRORS
// ============================================================================

const (
	ErrNothingToUndo       = "No previous batches to undo"
	ErrUndoFailed          = "Failed to undo the last batch"
	ErrHistoryReadFailed = "Failed to read upload history"
)

// ============================================================================
// KPI / ABC ERRORS
// ============================================================================

const (
	ErrKPIFailed        = "Failed to compute KPIs"
	ErrInvalidDimension = "Invalid grouping dimension. Use product or customer"
)
