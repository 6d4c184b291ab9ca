// Package controller owns the lifecycle of controller instances bound to
// registered devices.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────┐
//	│                       Manager                         │
//	│                                                       │
//	│  Activate(deviceID)                                   │
//	│      │ lookup descriptor (device.Registry)            │
//	│      │ claim device slot (one instance per device)    │
//	│      ▼                                                │
//	│  Transport.Handshake ── bounded by latency budget ──┐ │
//	│      │ ok                              timeout/fail │ │
//	│      ▼                                              ▼ │
//	│   active ◀────── re-activation ────────────────── error│
//	│      │                                                │
//	│      ▼ Deactivate                                     │
//	│  disconnected (slot released)                         │
//	└───────────────────────────────────────────────────────┘
//
// # Lifecycle
//
// States move disconnected → initializing → active within a session. The
// only backward edge is error recovery: ReportError (or a failed
// handshake) parks the instance in the error state, and a fresh Activate
// on the same device reuses the instance identity and retries the
// handshake.
//
// The initializing state doubles as the activation claim: two goroutines
// racing to activate the same device are serialized by the manager's
// mutex, and the loser fails with ErrAlreadyActive instead of producing a
// second instance.
//
// State transitions are pushed to a StateListener outside the lock; the
// sampler uses this to start and stop per-controller polling loops.
package controller
