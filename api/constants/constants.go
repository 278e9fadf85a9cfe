package constants

const (
	DateFormat    = "2006-01-02"
	DateFormatAlt = "02-01-2006"

	ContentTypeHeader = "Content-Type"
	ContentTypeJSON   = "application/json"

	KeyMode = "mode"
	KeyFile = "file"

	ValueSuccess = "success"
)
