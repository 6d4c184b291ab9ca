// Package mqtt wraps paho.mqtt.golang with LISU-specific functionality.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────┐
//	│                       Client                         │
//	│  connection management, LWT, auto-reconnect,         │
//	│  subscription restore, panic-safe handlers           │
//	└──────────────────────────────────────────────────────┘
//	       ▲                    ▲                   ▲
//	       │                    │                   │
//	  SampleIngest       HandshakeTransport    ActionPublisher
//	  lisu/sample/+      lisu/handshake/…      lisu/action/{cid}
//	  → sampler.Push     controller.Transport  ← mapping sink
//
// # Topic Hierarchy
//
//	lisu/sample/{controllerId}         raw samples from device transports
//	lisu/handshake/{controllerId}/init activation request from the core
//	lisu/handshake/{controllerId}/ack  transport acknowledgement
//	lisu/action/{controllerId}         evaluated action results
//	lisu/event/{kind}                  status events
//	lisu/system/status                 core online/offline (retained, LWT)
//
// The Last Will and Testament on lisu/system/status lets collaborators
// distinguish a crash from a graceful shutdown.
package mqtt
