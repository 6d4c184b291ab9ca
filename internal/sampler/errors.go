package sampler

import "errors"

// Input sampler errors.
var (
	// ErrControllerNotActive is returned when pushing or polling samples
	// for a controller without a running sampling loop.
	ErrControllerNotActive = errors.New("sampler: controller not active")

	// ErrSampleTimeout is returned when a poll produces no samples within
	// the polling window.
	ErrSampleTimeout = errors.New("sampler: sample timeout")
)
