// Package influxdb wraps the InfluxDB v2 client for input telemetry.
//
// # Measurements
//
//	input_samples   per-sample magnitude and transport latency
//	evaluations     mapping evaluation throughput and duration
//	controllers     per-controller sampler counters
//
// Writes are non-blocking and batched by the underlying client, so
// recording telemetry from the sampling hot path never stalls it. Async
// write failures surface through the SetOnError callback.
//
// Telemetry is optional: when disabled in configuration, Connect returns
// ErrDisabled and callers run without a client.
package influxdb
