package config

const (
	// Upload limits
	MaxUploadMB    = 15
	SampleRowCount = 5

	// External revenue blending
	ExternalWindowDays = 30
	SnapshotTTLMinutes = 15

	// Revenue snapshot refresh (cron spec)
	DefaultRefreshSchedule = "*/15 * * * *"

	DefaultSalesPort = "6143"
)
