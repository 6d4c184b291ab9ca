package sampler

import (
	"math"
	"time"

	"github.com/MSandovalPhD/lisu-core/internal/device"
)

// Value is one channel reading. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind   device.ValueKind `json:"kind"`
	Bool   bool             `json:"bool,omitempty"`
	Scalar float64          `json:"scalar,omitempty"`
	Vec    []float64        `json:"vec,omitempty"`
}

// BoolValue constructs a boolean reading.
func BoolValue(v bool) Value {
	return Value{Kind: device.ValueBool, Bool: v}
}

// ScalarValue constructs a scalar reading.
func ScalarValue(v float64) Value {
	return Value{Kind: device.ValueScalar, Scalar: v}
}

// Vec2Value constructs a 2D vector reading.
func Vec2Value(x, y float64) Value {
	return Value{Kind: device.ValueVec2, Vec: []float64{x, y}}
}

// Vec3Value constructs a 3D vector reading.
func Vec3Value(x, y, z float64) Value {
	return Value{Kind: device.ValueVec3, Vec: []float64{x, y, z}}
}

// Magnitude returns the Euclidean norm for vector values, the absolute
// value for scalars, and 0/1 for booleans.
func (v Value) Magnitude() float64 {
	switch v.Kind {
	case device.ValueBool:
		if v.Bool {
			return 1
		}
		return 0
	case device.ValueScalar:
		return math.Abs(v.Scalar)
	default:
		var sum float64
		for _, c := range v.Vec {
			sum += c * c
		}
		return math.Sqrt(sum)
	}
}

// WellFormed reports whether the payload matches the declared kind.
func (v Value) WellFormed() bool {
	switch v.Kind {
	case device.ValueBool, device.ValueScalar:
		return true
	case device.ValueVec2:
		return len(v.Vec) == 2
	case device.ValueVec3:
		return len(v.Vec) == 3
	default:
		return false
	}
}

// Sample is one channel reading from one controller. Timestamp is the
// origination time carried by the transport; ReceivedAt is stamped by the
// sampler on ingest using the local monotonic clock, and latency is
// measured between the two.
type Sample struct {
	ControllerID string    `json:"controllerId"`
	Channel      string    `json:"channel"`
	Value        Value     `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
	ReceivedAt   time.Time `json:"-"`
}

// Record is a batch of samples collected within one polling window. It is
// the unit of evaluation downstream.
type Record struct {
	ControllerID string    `json:"controllerId"`
	Samples      []Sample  `json:"samples"`
	CollectedAt  time.Time `json:"collectedAt"`
}

// Counters are per-controller sampling statistics.
type Counters struct {
	Received         uint64 `json:"received"`
	LatencyDropped   uint64 `json:"latencyDropped"`
	OverflowEvicted  uint64 `json:"overflowEvicted"`
	RecordsDelivered uint64 `json:"recordsDelivered"`
}
