package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ontology file format. The ontology collaborator supplies, per device, its
// USB identity, real-time parameters, and capability list:
//
//	devices:
//	  - vendor_id: 0x28de
//	    product_id: 0x2101
//	    name: "Index Controller"
//	    kind: vr_controller
//	    polling_rate_hz: 1000
//	    latency_ms: 16
//	    buffer_size: 64
//	    capabilities:
//	      - {name: trigger, kind: scalar}
//	      - {name: grip_button, kind: bool}
//	      - {name: thumbstick, kind: vec2}
//
// The core treats this file as read-only input consumed once at registry
// population time.

// ontologyFile is the top-level YAML document.
type ontologyFile struct {
	Devices []ontologyDevice `yaml:"devices"`
}

// ontologyDevice is one device entry in the ontology file.
type ontologyDevice struct {
	VendorID      uint16            `yaml:"vendor_id"`
	ProductID     uint16            `yaml:"product_id"`
	Name          string            `yaml:"name"`
	Kind          string            `yaml:"kind"`
	PollingRateHz int               `yaml:"polling_rate_hz"`
	LatencyMs     int               `yaml:"latency_ms"`
	BufferSize    int               `yaml:"buffer_size"`
	Capabilities  []ontologyChannel `yaml:"capabilities"`
}

// ontologyChannel is one capability entry.
type ontologyChannel struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// OntologyDefaults fill in real-time parameters for ontology entries that
// omit them.
type OntologyDefaults struct {
	PollingRateHz int
	LatencyMs     int
	BufferSize    int
}

// LoadOntology parses the device-capability ontology file and returns
// validated descriptors ready for registration.
//
// Entries that omit real-time parameters receive the supplied defaults.
// The whole load fails on the first invalid entry; a partially loaded
// ontology is worse than a loud startup failure.
func LoadOntology(path string, defaults OntologyDefaults) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ontology file: %w", err)
	}

	var file ontologyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOntologyFormat, err)
	}

	descriptors := make([]Descriptor, 0, len(file.Devices))
	for i, entry := range file.Devices {
		d := Descriptor{
			VendorID:      entry.VendorID,
			ProductID:     entry.ProductID,
			Name:          entry.Name,
			Kind:          Kind(entry.Kind),
			PollingRateHz: entry.PollingRateHz,
			LatencyMs:     entry.LatencyMs,
			BufferSize:    entry.BufferSize,
		}

		if d.PollingRateHz == 0 {
			d.PollingRateHz = defaults.PollingRateHz
		}
		if d.LatencyMs == 0 {
			d.LatencyMs = defaults.LatencyMs
		}
		if d.BufferSize == 0 {
			d.BufferSize = defaults.BufferSize
		}

		for _, c := range entry.Capabilities {
			d.Capabilities = append(d.Capabilities, Channel{
				Name: c.Name,
				Kind: ValueKind(c.Kind),
			})
		}

		if err := ValidateDescriptor(&d); err != nil {
			return nil, fmt.Errorf("ontology entry %d (%s): %w", i, entry.Name, err)
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}
