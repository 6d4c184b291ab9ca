package device

import "time"

// Descriptor describes one input device known to the registry: its USB
// identity, real-time parameters, and the named input channels it produces.
//
// Descriptors are created at enumeration or ontology-load time and are
// immutable thereafter. The registry hands out deep copies so callers can
// never mutate the cached entry.
type Descriptor struct {
	// Identity
	ID        string `json:"id"`
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`

	// Real-time parameters
	PollingRateHz int `json:"polling_rate_hz"`
	LatencyMs     int `json:"latency_ms"`
	BufferSize    int `json:"buffer_size"`

	// Capabilities are the input channels this device can produce.
	Capabilities []Channel `json:"capabilities"`

	CreatedAt time.Time `json:"created_at"`
}

// LatencyBound returns the descriptor's latency bound as a Duration.
func (d *Descriptor) LatencyBound() time.Duration {
	return time.Duration(d.LatencyMs) * time.Millisecond
}

// PollingPeriod returns the interval between polls derived from the
// descriptor's polling rate.
func (d *Descriptor) PollingPeriod() time.Duration {
	return time.Second / time.Duration(d.PollingRateHz)
}

// HasChannel reports whether the descriptor's capability list contains the
// named channel.
func (d *Descriptor) HasChannel(name string) bool {
	for _, c := range d.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DeepCopy creates a complete independent copy of the Descriptor.
// The capability slice is cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (d *Descriptor) DeepCopy() *Descriptor {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Channel, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}

	return &cpy
}

// Channel is one named input channel a device can produce, together with the
// kind of value it carries.
type Channel struct {
	Name string    `json:"name"`
	Kind ValueKind `json:"kind"`
}

// ValueKind classifies the value a channel produces.
type ValueKind string

// ValueKind constants.
const (
	ValueBool   ValueKind = "bool"   // buttons
	ValueScalar ValueKind = "scalar" // analog triggers
	ValueVec2   ValueKind = "vec2"   // joysticks, trackpads
	ValueVec3   ValueKind = "vec3"   // spatial input
)

// AllValueKinds returns all valid channel value kinds.
func AllValueKinds() []ValueKind {
	return []ValueKind{ValueBool, ValueScalar, ValueVec2, ValueVec3}
}

// Kind classifies the device itself.
type Kind string

// Kind constants.
const (
	KindVRController       Kind = "vr_controller"
	KindWiredController    Kind = "wired_controller"
	KindWirelessController Kind = "wireless_controller"
	KindHMD                Kind = "hmd"
	KindTracker            Kind = "tracker"
)

// AllKinds returns all valid device kinds.
func AllKinds() []Kind {
	return []Kind{
		KindVRController, KindWiredController, KindWirelessController,
		KindHMD, KindTracker,
	}
}
