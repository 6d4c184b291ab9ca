// Package device provides the Device Registry for the LISU input core.
//
// The Device Registry is the central catalogue of input devices the core can
// drive: their USB identity, real-time parameters (polling rate, latency
// bound, buffer size), and the named input channels they produce. The
// controller manager activates against registry entries; the mapping matrix
// validates rule channels against registry capabilities.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                          Device Registry                                 │
//	│                                                                          │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐   │
//	│  │     Registry     │    │    Repository    │    │     Ontology     │   │
//	│  │   (registry.go)  │───▶│  (repository.go) │    │  (ontology.go)   │   │
//	│  │                  │    │                  │    │                  │   │
//	│  │ • Register/Lookup│    │ • SQLite queries │    │ • YAML capability│   │
//	│  │ • In-memory cache│    │ • JSON marshal   │    │   metadata       │   │
//	│  │ • Thread safety  │    │                  │    │ • Startup load   │   │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘   │
//	└──────────────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Descriptor: Identity, real-time parameters, and capabilities of one device
//   - Channel: A named input channel with its value kind (bool, scalar, vec2, vec3)
//   - Kind: Device classification (vr_controller, hmd, tracker, ...)
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	id, err := registry.Register(ctx, &device.Descriptor{
//	    VendorID:      0x28de,
//	    ProductID:     0x2101,
//	    Name:          "Index Controller",
//	    Kind:          device.KindVRController,
//	    PollingRateHz: 1000,
//	    LatencyMs:     16,
//	    BufferSize:    64,
//	    Capabilities: []device.Channel{
//	        {Name: "trigger", Kind: device.ValueScalar},
//	        {Name: "grip_button", Kind: device.ValueBool},
//	    },
//	})
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex. The Repository implementation must also be thread-safe.
package device
