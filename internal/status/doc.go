// Package status collects error and status events from every part of the
// input core and fans them out to interested observers.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────┐
//	│                      Reporter                        │
//	│                                                      │
//	│  Report(event)            Subscribe(name, buffer)    │
//	│      │                          │                    │
//	│      ▼                          ▼                    │
//	│  ┌─────────┐    fan-out    ┌──────────────────┐      │
//	│  │ counters│──────────────▶│ bounded queues   │      │
//	│  └─────────┘               │ (oldest dropped) │      │
//	│      │                     └──────────────────┘      │
//	│      ▼                                               │
//	│  persistence worker ──▶ SQLite (status_events)       │
//	└──────────────────────────────────────────────────────┘
//
// # Delivery Semantics
//
// Report is fire-and-forget. The producer never blocks and never sees a
// delivery error: a full subscriber queue sheds its oldest event to make
// room for the newest one, so every subscriber always converges on the
// most recent system state. Per-subscriber drop counts are tracked for
// diagnostics.
//
// Persistence runs on a dedicated worker so a slow disk cannot stall the
// sampling hot path.
//
// # Usage
//
//	reporter := status.NewReporter(status.NewSQLiteRepository(db.Conn()))
//	reporter.SetLogger(logger)
//	defer reporter.Close()
//
//	events, unsubscribe, err := reporter.Subscribe("websocket-hub", 128)
//	if err != nil { ... }
//	defer unsubscribe()
//
//	reporter.Report(status.Event{
//		Kind:         status.KindLatencyViolation,
//		Severity:     status.SeverityWarning,
//		ControllerID: cid,
//		Message:      "sample exceeded latency bound",
//	})
package status
