package controller

import "errors"

// Controller manager errors.
var (
	// ErrDeviceUnavailable is returned when activating an unknown or
	// unregistered device.
	ErrDeviceUnavailable = errors.New("controller: device unavailable")

	// ErrAlreadyActive is returned when a device already has an active or
	// initializing controller instance.
	ErrAlreadyActive = errors.New("controller: already active")

	// ErrInitializationTimeout is returned when the activation handshake
	// does not complete within the device's latency bound.
	ErrInitializationTimeout = errors.New("controller: initialization timeout")

	// ErrControllerNotFound is returned when an operation references an
	// unknown controller instance.
	ErrControllerNotFound = errors.New("controller: controller not found")
)
