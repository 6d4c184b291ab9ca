package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
ontology:
  path: "/tmp/ontology.yaml"
  autoload: false
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Ontology.Path != "/tmp/ontology.yaml" {
		t.Errorf("Ontology.Path = %q, want %q", cfg.Ontology.Path, "/tmp/ontology.yaml")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_SamplerDefaults(t *testing.T) {
	content := `
site:
  id: "test-site"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sampler.DefaultPollingRateHz != 1000 {
		t.Errorf("DefaultPollingRateHz = %d, want 1000", cfg.Sampler.DefaultPollingRateHz)
	}
	if cfg.Sampler.DefaultLatencyMs != 16 {
		t.Errorf("DefaultLatencyMs = %d, want 16", cfg.Sampler.DefaultLatencyMs)
	}
	if cfg.Sampler.DefaultBufferSize != 64 {
		t.Errorf("DefaultBufferSize = %d, want 64", cfg.Sampler.DefaultBufferSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/original.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("LISU_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("LISU_MQTT_HOST", "broker.example.com")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing site id",
			mutate: func(c *Config) { c.Site.ID = "" },
			want:   "site.id",
		},
		{
			name:   "missing database path",
			mutate: func(c *Config) { c.Database.Path = "" },
			want:   "database.path",
		},
		{
			name:   "invalid qos",
			mutate: func(c *Config) { c.MQTT.QoS = 3 },
			want:   "mqtt.qos",
		},
		{
			name:   "invalid api port",
			mutate: func(c *Config) { c.API.Port = 0 },
			want:   "api.port",
		},
		{
			name:   "zero polling rate",
			mutate: func(c *Config) { c.Sampler.DefaultPollingRateHz = 0 },
			want:   "polling_rate",
		},
		{
			name:   "negative latency",
			mutate: func(c *Config) { c.Sampler.DefaultLatencyMs = -1 },
			want:   "latency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
