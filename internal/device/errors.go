package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDuplicateDevice is returned when registering a device whose
	// vendor/product pair (or ID) is already registered.
	ErrDuplicateDevice = errors.New("device: already registered")

	// ErrInvalidDescriptor is returned when descriptor validation fails.
	ErrInvalidDescriptor = errors.New("device: invalid descriptor")

	// ErrInvalidKind is returned when a device kind is not recognised.
	ErrInvalidKind = errors.New("device: invalid kind")

	// ErrInvalidChannel is returned when a capability channel is malformed.
	ErrInvalidChannel = errors.New("device: invalid channel")

	// ErrOntologyFormat is returned when the ontology file cannot be parsed.
	ErrOntologyFormat = errors.New("device: malformed ontology file")
)
