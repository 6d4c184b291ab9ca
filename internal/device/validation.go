package device

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100

	// Bounds on real-time parameters. These are generous for VR input
	// hardware: the fastest shipping controllers poll at 1 kHz.
	maxPollingRateHz = 8000
	maxLatencyMs     = 1000
	maxBufferSize    = 4096

	// maxCapabilities bounds the channel list to keep descriptor JSON small.
	maxCapabilities = 64

	channelNamePattern = `^[a-z][a-z0-9_]*$`
)

var channelNameRegex = regexp.MustCompile(channelNamePattern)

// Pre-computed validation sets for O(1) lookups instead of O(n) linear search.
var (
	validKinds      map[Kind]struct{}
	validValueKinds map[ValueKind]struct{}
)

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}

	validValueKinds = make(map[ValueKind]struct{}, len(AllValueKinds()))
	for _, v := range AllValueKinds() {
		validValueKinds[v] = struct{}{}
	}
}

// ValidateDescriptor performs comprehensive validation on a descriptor.
// Returns an error describing the first validation failure found.
// All failures wrap ErrInvalidDescriptor so callers can match the class.
func ValidateDescriptor(d *Descriptor) error {
	if d == nil {
		return ErrInvalidDescriptor
	}

	if d.Name == "" || len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidDescriptor, maxNameLength)
	}

	if _, ok := validKinds[d.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}

	if d.PollingRateHz <= 0 || d.PollingRateHz > maxPollingRateHz {
		return fmt.Errorf("%w: polling rate must be 1-%d Hz, got %d",
			ErrInvalidDescriptor, maxPollingRateHz, d.PollingRateHz)
	}

	if d.LatencyMs < 0 || d.LatencyMs > maxLatencyMs {
		return fmt.Errorf("%w: latency must be 0-%d ms, got %d",
			ErrInvalidDescriptor, maxLatencyMs, d.LatencyMs)
	}

	if d.BufferSize <= 0 || d.BufferSize > maxBufferSize {
		return fmt.Errorf("%w: buffer size must be 1-%d, got %d",
			ErrInvalidDescriptor, maxBufferSize, d.BufferSize)
	}

	if len(d.Capabilities) == 0 {
		return fmt.Errorf("%w: capability list must not be empty", ErrInvalidDescriptor)
	}
	if len(d.Capabilities) > maxCapabilities {
		return fmt.Errorf("%w: at most %d capabilities, got %d",
			ErrInvalidDescriptor, maxCapabilities, len(d.Capabilities))
	}

	seen := make(map[string]struct{}, len(d.Capabilities))
	for _, c := range d.Capabilities {
		if err := validateChannel(c); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate channel %q", ErrInvalidChannel, c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	return nil
}

// validateChannel checks a single capability channel.
func validateChannel(c Channel) error {
	if !channelNameRegex.MatchString(c.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidChannel, c.Name, channelNamePattern)
	}
	if _, ok := validValueKinds[c.Kind]; !ok {
		return fmt.Errorf("%w: %q has unknown value kind %q", ErrInvalidChannel, c.Name, c.Kind)
	}
	return nil
}

// GenerateID creates a new unique device identifier.
func GenerateID() string {
	return uuid.New().String()
}
