package mqtt

import (
	"testing"
	"time"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"all samples", topics.AllSamples(), "lisu/sample/+"},
		{"handshake init", topics.HandshakeInit("ctrl-1"), "lisu/handshake/ctrl-1/init"},
		{"handshake ack", topics.HandshakeAck("ctrl-1"), "lisu/handshake/ctrl-1/ack"},
		{"action", topics.Action("ctrl-1"), "lisu/action/ctrl-1"},
		{"event", topics.Event("overflow"), "lisu/event/overflow"},
		{"system status", topics.SystemStatus(), "lisu/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseSample(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := []byte(`{
			"controllerId": "ctrl-1",
			"channelName": "trigger",
			"value": {"kind": "scalar", "scalar": 0.8},
			"timestamp": "2026-08-30T12:00:00Z"
		}`)

		s, err := parseSample("lisu/sample/ctrl-1", payload)
		if err != nil {
			t.Fatalf("parseSample() error = %v", err)
		}
		if s.ControllerID != "ctrl-1" || s.Channel != "trigger" {
			t.Errorf("sample = %+v", s)
		}
		if s.Value.Scalar != 0.8 {
			t.Errorf("Scalar = %v, want 0.8", s.Value.Scalar)
		}
		want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		if !s.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want %v", s.Timestamp, want)
		}
		if s.ReceivedAt.IsZero() {
			t.Error("ReceivedAt was not stamped")
		}
	})

	t.Run("controller identity falls back to topic", func(t *testing.T) {
		payload := []byte(`{"channelName": "button", "value": {"kind": "bool", "bool": true}}`)

		s, err := parseSample("lisu/sample/ctrl-9", payload)
		if err != nil {
			t.Fatalf("parseSample() error = %v", err)
		}
		if s.ControllerID != "ctrl-9" {
			t.Errorf("ControllerID = %q, want ctrl-9", s.ControllerID)
		}
		if !s.Value.Bool {
			t.Error("Bool = false, want true")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := parseSample("lisu/sample/ctrl-1", []byte("{not json")); err == nil {
			t.Error("parseSample() error = nil, want error")
		}
	})

	t.Run("vector value", func(t *testing.T) {
		payload := []byte(`{"controllerId": "ctrl-1", "channelName": "thumbstick",
			"value": {"kind": "vec2", "vec": [0.5, -0.5]}}`)

		s, err := parseSample("lisu/sample/ctrl-1", payload)
		if err != nil {
			t.Fatalf("parseSample() error = %v", err)
		}
		if !s.Value.WellFormed() {
			t.Errorf("vec2 value not well-formed: %+v", s.Value)
		}
	})
}
