// Package mapping is the central engine: it holds the channel-to-action
// rule table and evaluates incoming sample records against it.
//
// # Architecture
//
//	CreateMapping / RemoveMapping (writers, serialized)
//	          │ validate channel against registered capabilities
//	          │ reject equal-priority ambiguity (fail fast)
//	          ▼
//	 ┌─────────────────────┐  copy-on-write: writers clone, then
//	 │ rule table snapshot │  publish atomically; readers always
//	 │  channel → rules    │  see a consistent snapshot
//	 │  (priority-sorted)  │
//	 └─────────────────────┘
//	          │ lock-free read
//	          ▼
//	 ProcessInput(record) ──▶ ActionResult ──▶ sinks (WS, MQTT, telemetry)
//
// # Rule Selection
//
// Per sample, the candidate rules for its channel are scanned highest
// priority first; ties at equal priority go to the first-registered rule.
// The first enabled rule whose predicate is satisfied fires, at most one
// per channel per record. Actions are deduplicated across the record with
// the triggering rule retained for traceability.
//
// Rule evaluation at kHz polling rates cannot afford to contend with rule
// mutations, so the table is copy-on-write: an in-flight evaluation
// completes against the pre-mutation snapshot.
//
// Creation order is persisted with each rule, so tie-breaks stay
// deterministic across process restarts.
package mapping
