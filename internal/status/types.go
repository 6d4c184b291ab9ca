package status

import "time"

// Kind classifies an event.
type Kind string

// Event kinds.
const (
	KindDeviceError      Kind = "device_error"
	KindControllerError  Kind = "controller_error"
	KindControllerState  Kind = "controller_state_changed"
	KindLatencyViolation Kind = "latency_violation"
	KindOverflow         Kind = "overflow"
	KindMappingConflict  Kind = "mapping_conflict"
	KindInvalidSample    Kind = "invalid_sample"
)

// Severity indicates how urgent an event is.
type Severity string

// Severity levels.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one status or error report flowing through the reporter.
// Producers fill in what they know; the reporter assigns ID and CreatedAt.
type Event struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	Severity     Severity       `json:"severity"`
	ControllerID string         `json:"controllerId,omitempty"`
	DeviceID     string         `json:"deviceId,omitempty"`
	Message      string         `json:"message"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
