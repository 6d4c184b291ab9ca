package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/mapping"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
	"github.com/MSandovalPhD/lisu-core/internal/status"
)

// samplePayload is the wire format device transports publish on
// lisu/sample/{controllerId}.
type samplePayload struct {
	ControllerID string    `json:"controllerId"`
	Channel      string    `json:"channelName"`
	Value        wireValue `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
}

// wireValue is the tagged value encoding on the wire.
type wireValue struct {
	Kind   string    `json:"kind"`
	Bool   bool      `json:"bool,omitempty"`
	Scalar float64   `json:"scalar,omitempty"`
	Vec    []float64 `json:"vec,omitempty"`
}

// SamplePusher accepts ingested samples. Implemented by sampler.Sampler.
type SamplePusher interface {
	Push(s sampler.Sample) error
}

// SampleIngest subscribes to the sample stream and feeds the sampler.
type SampleIngest struct {
	client *Client
	pusher SamplePusher
	qos    byte
	logger Logger
}

// NewSampleIngest creates the ingest bridge.
func NewSampleIngest(client *Client, pusher SamplePusher, qos byte) *SampleIngest {
	return &SampleIngest{client: client, pusher: pusher, qos: qos}
}

// SetLogger configures logging for the ingest path.
func (si *SampleIngest) SetLogger(logger Logger) {
	si.logger = logger
}

// Start subscribes to lisu/sample/+. Samples for inactive controllers are
// discarded by the sampler; that is expected during deactivation races and
// not treated as an ingest failure.
func (si *SampleIngest) Start() error {
	return si.client.Subscribe(Topics{}.AllSamples(), si.qos, func(topic string, payload []byte) error {
		s, err := parseSample(topic, payload)
		if err != nil {
			return err
		}
		if err := si.pusher.Push(s); err != nil && si.logger != nil {
			si.logger.Warn("sample discarded", "topic", topic, "error", err)
		}
		return nil
	})
}

// Stop unsubscribes from the sample stream.
func (si *SampleIngest) Stop() error {
	return si.client.Unsubscribe(Topics{}.AllSamples())
}

// parseSample decodes one wire sample. The controller identity comes from
// the payload, falling back to the topic segment.
func parseSample(topic string, payload []byte) (sampler.Sample, error) {
	var p samplePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return sampler.Sample{}, fmt.Errorf("decoding sample payload: %w", err)
	}

	controllerID := p.ControllerID
	if controllerID == "" {
		parts := strings.Split(topic, "/")
		controllerID = parts[len(parts)-1]
	}

	return sampler.Sample{
		ControllerID: controllerID,
		Channel:      p.Channel,
		Value: sampler.Value{
			Kind:   device.ValueKind(p.Value.Kind),
			Bool:   p.Value.Bool,
			Scalar: p.Value.Scalar,
			Vec:    p.Value.Vec,
		},
		Timestamp:  p.Timestamp,
		ReceivedAt: time.Now(),
	}, nil
}

// HandshakeTransport implements the controller activation handshake over
// MQTT: publish an init request, wait for the transport's ack within the
// caller's deadline.
type HandshakeTransport struct {
	client *Client
	qos    byte

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewHandshakeTransport creates the MQTT handshake transport.
func NewHandshakeTransport(client *Client, qos byte) *HandshakeTransport {
	return &HandshakeTransport{
		client:  client,
		qos:     qos,
		pending: make(map[string]chan struct{}),
	}
}

// Handshake publishes lisu/handshake/{cid}/init and waits for the ack.
// The deadline on ctx comes from the device's latency bound.
func (ht *HandshakeTransport) Handshake(ctx context.Context, controllerID, deviceID string) error {
	ackTopic := Topics{}.HandshakeAck(controllerID)
	ack := make(chan struct{}, 1)

	ht.mu.Lock()
	ht.pending[controllerID] = ack
	ht.mu.Unlock()
	defer func() {
		ht.mu.Lock()
		delete(ht.pending, controllerID)
		ht.mu.Unlock()
		_ = ht.client.Unsubscribe(ackTopic)
	}()

	if err := ht.client.Subscribe(ackTopic, ht.qos, func(_ string, _ []byte) error {
		select {
		case ack <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		return err
	}

	request, err := json.Marshal(map[string]string{
		"controllerId": controllerID,
		"deviceId":     deviceID,
	})
	if err != nil {
		return fmt.Errorf("encoding handshake request: %w", err)
	}
	if err := ht.client.Publish(Topics{}.HandshakeInit(controllerID), request, ht.qos, false); err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActionPublisher forwards evaluated action results to
// lisu/action/{controllerId}. It satisfies the mapping sink contract.
type ActionPublisher struct {
	client *Client
	qos    byte
	logger Logger
}

// NewActionPublisher creates the action result publisher.
func NewActionPublisher(client *Client, qos byte) *ActionPublisher {
	return &ActionPublisher{client: client, qos: qos}
}

// SetLogger configures logging for publish failures.
func (ap *ActionPublisher) SetLogger(logger Logger) {
	ap.logger = logger
}

// PublishActions publishes one result. Empty results are skipped to keep
// the action stream signal-only.
func (ap *ActionPublisher) PublishActions(result mapping.ActionResult) {
	if len(result.Actions) == 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		if ap.logger != nil {
			ap.logger.Error("encoding action result failed", "error", err)
		}
		return
	}
	if err := ap.client.Publish(Topics{}.Action(result.ControllerID), payload, ap.qos, false); err != nil {
		if ap.logger != nil {
			ap.logger.Warn("publishing action result failed",
				"controller_id", result.ControllerID,
				"error", err,
			)
		}
	}
}

// EventPublisher mirrors status events to lisu/event/{kind} so broker
// collaborators can observe latency violations, overflows, and controller
// state changes without polling the HTTP API.
type EventPublisher struct {
	client *Client
	qos    byte
	logger Logger
}

// NewEventPublisher creates the status event publisher.
func NewEventPublisher(client *Client, qos byte) *EventPublisher {
	return &EventPublisher{client: client, qos: qos}
}

// SetLogger configures logging for publish failures.
func (ep *EventPublisher) SetLogger(logger Logger) {
	ep.logger = logger
}

// PublishEvent publishes one event on its kind topic.
func (ep *EventPublisher) PublishEvent(e status.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		if ep.logger != nil {
			ep.logger.Error("encoding status event failed", "error", err)
		}
		return
	}
	if err := ep.client.Publish(Topics{}.Event(string(e.Kind)), payload, ep.qos, false); err != nil {
		if ep.logger != nil {
			ep.logger.Warn("publishing status event failed",
				"kind", string(e.Kind),
				"error", err,
			)
		}
	}
}

// Run forwards events from a reporter subscription until the channel
// closes. Intended to run in its own goroutine.
func (ep *EventPublisher) Run(events <-chan status.Event) {
	for e := range events {
		ep.PublishEvent(e)
	}
}
