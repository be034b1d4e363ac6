package auditlog

const (
	// MaxBodyCapture is the maximum size of request/response bodies to capture (1MB).
	MaxBodyCapture = 1024 * 1024

	// maxDecompressedSize caps how much a compressed body may expand to.
	maxDecompressedSize = 2 * 1024 * 1024

	// BatchFlushThreshold is the number of entries that triggers an immediate flush.
	BatchFlushThreshold = 100
)

type contextKey string

// LogEntryKey is the echo context key holding the in-flight entry.
const LogEntryKey contextKey = "auditlog_entry"
