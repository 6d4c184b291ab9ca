package mapping

import "errors"

// Mapping matrix errors.
var (
	// ErrUnknownChannel is returned when a rule references a channel no
	// registered device is capable of producing.
	ErrUnknownChannel = errors.New("mapping: unknown channel")

	// ErrMappingConflict is returned when a new rule would make an
	// equal-priority channel ambiguous. Detected at creation, never
	// deferred to evaluation.
	ErrMappingConflict = errors.New("mapping: conflict")

	// ErrInvalidRule is returned for structurally invalid rule specs.
	ErrInvalidRule = errors.New("mapping: invalid rule")
)
