package mqtt

import "fmt"

// Topic prefixes for the LISU MQTT hierarchy.
//
// Transport collaborators publish raw samples under lisu/sample/, the core
// publishes evaluated actions under lisu/action/, and the activation
// handshake runs under lisu/handshake/.
const (
	// TopicPrefix is the base for all LISU topics.
	TopicPrefix = "lisu"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lisu/system"
)

// Topics provides builders for LISU MQTT topics. Using these helpers keeps
// topic naming consistent across the codebase.
type Topics struct{}

// AllSamples returns a pattern matching sample streams from every
// controller.
//
// Pattern: lisu/sample/+
func (Topics) AllSamples() string {
	return fmt.Sprintf("%s/sample/+", TopicPrefix)
}

// HandshakeInit returns the topic the core publishes activation handshake
// requests on.
//
// Example: lisu/handshake/ctrl-abc123/init
func (Topics) HandshakeInit(controllerID string) string {
	return fmt.Sprintf("%s/handshake/%s/init", TopicPrefix, controllerID)
}

// HandshakeAck returns the topic a device transport acknowledges the
// handshake on.
//
// Example: lisu/handshake/ctrl-abc123/ack
func (Topics) HandshakeAck(controllerID string) string {
	return fmt.Sprintf("%s/handshake/%s/ack", TopicPrefix, controllerID)
}

// Action returns the topic evaluated action results are published on.
//
// Example: lisu/action/ctrl-abc123
func (Topics) Action(controllerID string) string {
	return fmt.Sprintf("%s/action/%s", TopicPrefix, controllerID)
}

// Event returns the topic status events are published on, by kind.
//
// Example: lisu/event/latency_violation
func (Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, kind)
}

// SystemStatus returns the core online/offline status topic.
//
// Example: lisu/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
