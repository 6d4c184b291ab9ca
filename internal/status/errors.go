package status

import "errors"

// Status reporter errors.
var (
	// ErrReporterClosed is returned when subscribing to a closed reporter.
	ErrReporterClosed = errors.New("status: reporter closed")

	// ErrEventNotFound is returned when a persisted event does not exist.
	ErrEventNotFound = errors.New("status: event not found")
)
