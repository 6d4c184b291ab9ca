package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSampleMetric records one input sample for timing analysis.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - controllerID: Controller the sample came from
//   - channel: Input channel name (e.g., "trigger")
//   - magnitude: The sample's scalar magnitude
//   - latencyMs: Transport latency in milliseconds
func (c *Client) WriteSampleMetric(controllerID, channel string, magnitude float64, latencyMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"input_samples",
		map[string]string{
			"controller_id": controllerID,
			"channel":       channel,
		},
		map[string]interface{}{
			"magnitude":  magnitude,
			"latency_ms": latencyMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteEvaluationMetric records one mapping evaluation: how many samples
// went in, how many actions came out, and how long it took.
func (c *Client) WriteEvaluationMetric(controllerID string, samples, actions int, durationMicros int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"evaluations",
		map[string]string{
			"controller_id": controllerID,
		},
		map[string]interface{}{
			"samples":         samples,
			"actions":         actions,
			"duration_micros": durationMicros,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteControllerMetric records controller health counters, typically the
// sampler's per-controller statistics.
func (c *Client) WriteControllerMetric(controllerID string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"controllers",
		map[string]string{
			"controller_id": controllerID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
