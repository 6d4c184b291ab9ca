package mapping

import (
	"time"

	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
)

// Predicate decides whether a sample value triggers a rule.
//
// Evaluation depends on the value kind: booleans are a truthy check,
// scalars compare against Threshold when set and fall back to non-zero,
// vectors compare their magnitude against Threshold when set and fall
// back to non-zero magnitude.
type Predicate struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

// Satisfied evaluates the predicate against one value.
func (p Predicate) Satisfied(v sampler.Value) bool {
	switch v.Kind {
	case device.ValueBool:
		return v.Bool
	case device.ValueScalar:
		if p.Threshold != nil {
			return v.Scalar > *p.Threshold
		}
		return v.Scalar != 0
	case device.ValueVec2, device.ValueVec3:
		if p.Threshold != nil {
			return v.Magnitude() > *p.Threshold
		}
		return v.Magnitude() != 0
	default:
		return false
	}
}

// Rule associates one input channel with one action. Rules are immutable
// once created; Seq records creation order and breaks priority ties
// deterministically, first registered wins.
type Rule struct {
	Handle    string    `json:"handle"`
	Channel   string    `json:"channel"`
	Action    string    `json:"action"`
	Priority  int       `json:"priority"`
	Mode      string    `json:"mode,omitempty"` // empty enables the rule in every mode
	Predicate Predicate `json:"predicate"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// enabledIn reports whether the rule participates under the current mode.
func (r *Rule) enabledIn(mode string) bool {
	return r.Mode == "" || r.Mode == mode
}

// RuleSpec is the caller-supplied definition for CreateMapping.
type RuleSpec struct {
	Channel   string   `json:"channel"`
	Action    string   `json:"action"`
	Priority  int      `json:"priority"`
	Mode      string   `json:"mode,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// TriggeredAction is one fired action with the rule retained for
// traceability.
type TriggeredAction struct {
	Action     string `json:"action"`
	RuleHandle string `json:"ruleHandle"`
	Channel    string `json:"channel"`
	Priority   int    `json:"priority"`
}

// ActionResult is the deduplicated action set produced for one record.
type ActionResult struct {
	ControllerID   string            `json:"controllerId"`
	Actions        []TriggeredAction `json:"actions"`
	EvaluatedAt    time.Time         `json:"evaluatedAt"`
	InvalidSamples int               `json:"invalidSamples,omitempty"`
}

// State is the observability state of the matrix as a whole. It never
// gates an operation.
type State string

// Matrix states.
const (
	StateEmpty      State = "empty"
	StateConfigured State = "configured"
	StateActive     State = "active"
)
