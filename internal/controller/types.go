package controller

import "time"

// State is the lifecycle state of a controller instance.
type State string

// Controller lifecycle states. Transitions are monotone within a session
// (disconnected → initializing → active) except error recovery, which
// requires an explicit re-activation.
const (
	StateDisconnected State = "disconnected"
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StateError        State = "error"
)

// Instance is the runtime state of one activated controller. It references
// exactly one registered device descriptor.
type Instance struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"deviceId"`
	State         State     `json:"state"`
	ErrorReason   string    `json:"errorReason,omitempty"`
	ActivatedAt   time.Time `json:"activatedAt,omitzero"`
	LastHeartbeat time.Time `json:"lastHeartbeat,omitzero"`
}

// IsActive reports whether the instance is accepting samples.
func (i *Instance) IsActive() bool {
	return i.State == StateActive
}
