package influxdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/config"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "lisu-dev-token",
		Org:           "lisu",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if no local InfluxDB is running.
func skipIfNoInfluxDB(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping")
	}
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Error("Connect() error = nil, want connection failure")
	}
}

func TestHealthCheck(t *testing.T) {
	client := skipIfNoInfluxDB(t)
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteSampleMetric(t *testing.T) {
	client := skipIfNoInfluxDB(t)
	defer client.Close()

	// Non-blocking write must not error or panic; flush to force delivery.
	client.WriteSampleMetric("ctrl-test", "trigger", 0.8, 3.2)
	client.WriteEvaluationMetric("ctrl-test", 4, 1, 120)
	client.WriteControllerMetric("ctrl-test", map[string]interface{}{
		"received": int64(100),
		"dropped":  int64(2),
	})
	client.Flush()
}

func TestWriteAfterClose(t *testing.T) {
	client := skipIfNoInfluxDB(t)
	client.Close()

	// Writes after close are silent no-ops.
	client.WriteSampleMetric("ctrl-test", "trigger", 0.5, 1.0)
	client.Flush()

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}
