// LISU Core - Universal VR Input Mapping Service
//
// This is the main entry point for the LISU core. The service registers
// input devices, manages controller lifecycles, samples input channels at
// device rates, and maps samples to application actions through a
// priority-ordered rule matrix.
//
// Samples arrive over MQTT, actions leave over MQTT and WebSocket, and the
// HTTP API administers devices, controllers, and mappings.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/MSandovalPhD/lisu-core/migrations"

	"github.com/MSandovalPhD/lisu-core/internal/api"
	"github.com/MSandovalPhD/lisu-core/internal/controller"
	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/config"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/database"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/influxdb"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/logging"
	"github.com/MSandovalPhD/lisu-core/internal/infrastructure/mqtt"
	"github.com/MSandovalPhD/lisu-core/internal/mapping"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
	"github.com/MSandovalPhD/lisu-core/internal/status"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear wiring of the component graph
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting LISU Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Status reporter with persisted event history
	reporter := status.NewReporter(status.NewSQLiteRepository(db.DB))
	reporter.SetLogger(log)
	defer reporter.Close()

	// Device registry
	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetStats().TotalDevices)

	// Pre-register devices from the capability ontology (optional)
	if cfg.Ontology.Autoload {
		if loadErr := autoloadOntology(ctx, cfg, deviceRegistry, log); loadErr != nil {
			return fmt.Errorf("loading ontology: %w", loadErr)
		}
	}

	// Mapping matrix with persisted rules
	mappingRepo := mapping.NewSQLiteRepository(db.DB)
	matrix := mapping.NewMatrix(deviceRegistry, mappingRepo, reporter)
	matrix.SetLogger(log)

	rules, err := mappingRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading mapping rules: %w", err)
	}
	matrix.Load(rules)
	log.Info("mapping matrix initialised", "rules", len(rules), "state", matrix.State())

	// Input sampler feeding the matrix
	inputSampler := sampler.NewSampler(matrix, reporter)
	inputSampler.SetLogger(log)
	defer inputSampler.StopAll()

	// Connect to InfluxDB (optional telemetry). Connected before the
	// transports so the ingest and heartbeat paths can record metrics.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		// One evaluation metric per published result
		matrix.AddSink(&influxActionSink{client: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional sample transport)
	var mqttClient *mqtt.Client
	var transport controller.Transport = controller.LoopbackTransport{}
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		qos := byte(cfg.MQTT.QoS)

		// Inbound samples feed the sampler queues, recording per-sample
		// telemetry on the way when InfluxDB is connected
		var pusher mqtt.SamplePusher = inputSampler
		if influxClient != nil {
			pusher = &sampleTelemetry{next: inputSampler, metrics: influxClient}
		}
		ingest := mqtt.NewSampleIngest(mqttClient, pusher, qos)
		ingest.SetLogger(log)
		if startErr := ingest.Start(); startErr != nil {
			return fmt.Errorf("starting sample ingest: %w", startErr)
		}
		defer func() {
			if stopErr := ingest.Stop(); stopErr != nil {
				log.Error("error stopping sample ingest", "error", stopErr)
			}
		}()

		// Controller handshakes run over the same broker
		transport = mqtt.NewHandshakeTransport(mqttClient, qos)

		// Evaluated actions go back out on the action topics
		actionPublisher := mqtt.NewActionPublisher(mqttClient, qos)
		actionPublisher.SetLogger(log)
		matrix.AddSink(actionPublisher)

		// Status events mirror to lisu/event/{kind}
		events, unsubscribeEvents, subErr := reporter.Subscribe("mqtt", status.DefaultSubscriberBuffer)
		if subErr != nil {
			return fmt.Errorf("subscribing to status events: %w", subErr)
		}
		defer unsubscribeEvents()
		eventPublisher := mqtt.NewEventPublisher(mqttClient, qos)
		eventPublisher.SetLogger(log)
		go eventPublisher.Run(events)
	} else {
		log.Info("MQTT disabled, using loopback handshake transport")
	}

	// Controller manager
	manager := controller.NewManager(deviceRegistry, transport, reporter)
	manager.SetLogger(log)

	// Record deliveries keep the manager's liveness fresh; with InfluxDB
	// connected, each heartbeat also flushes the sampler's counters
	var heartbeater sampler.Heartbeater = manager
	if influxClient != nil {
		heartbeater = &telemetryHeartbeater{next: manager, counters: inputSampler, metrics: influxClient}
	}
	inputSampler.SetHeartbeater(heartbeater)

	// Sampling loops follow controller lifecycle: activation starts the
	// per-controller loop at the descriptor's polling rate, deactivation
	// and errors stop it.
	manager.SetStateListener(func(inst controller.Instance, _ controller.State) {
		switch inst.State {
		case controller.StateActive:
			desc, descErr := manager.Descriptor(ctx, inst.ID)
			if descErr != nil {
				log.Error("descriptor lookup for sampling loop failed",
					"controller_id", inst.ID, "error", descErr)
				return
			}
			inputSampler.Start(ctx, inst.ID, desc)
		case controller.StateDisconnected, controller.StateError:
			inputSampler.Stop(inst.ID)
		case controller.StateInitializing:
			// Handshake in progress; nothing to do yet
		}
	})

	// HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: deviceRegistry,
		Manager:  manager,
		Sampler:  inputSampler,
		Matrix:   matrix,
		Reporter: reporter,
		Events:   status.NewSQLiteRepository(db.DB),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Action results also stream to WebSocket clients
	matrix.AddSink(apiServer)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT event bridge, ingest, and client (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Sampler loops
	// 5. Status reporter
	// 6. Database

	log.Info("LISU Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LISU_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LISU_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// autoloadOntology registers descriptors from the capability ontology file.
// Devices already present in the registry are skipped, so restarts are safe.
func autoloadOntology(ctx context.Context, cfg *config.Config, registry *device.Registry, log *logging.Logger) error {
	descriptors, err := device.LoadOntology(cfg.Ontology.Path, device.OntologyDefaults{
		PollingRateHz: cfg.Sampler.DefaultPollingRateHz,
		LatencyMs:     cfg.Sampler.DefaultLatencyMs,
		BufferSize:    cfg.Sampler.DefaultBufferSize,
	})
	if err != nil {
		return err
	}

	registered, skipped := 0, 0
	for i := range descriptors {
		d := &descriptors[i]
		// A device already registered under this USB identity keeps its
		// stored descriptor and ID across restarts.
		if _, lookupErr := registry.LookupByVendorProduct(ctx, d.VendorID, d.ProductID); lookupErr == nil {
			skipped++
			continue
		}
		if _, regErr := registry.Register(ctx, d); regErr != nil {
			if errors.Is(regErr, device.ErrDuplicateDevice) {
				skipped++
				continue
			}
			return fmt.Errorf("registering %q: %w", d.Name, regErr)
		}
		registered++
	}
	log.Info("ontology loaded", "path", cfg.Ontology.Path,
		"descriptors", len(descriptors), "registered", registered, "skipped", skipped)
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// influxActionSink adapts the InfluxDB client to the mapping matrix's sink
// interface, recording one evaluation metric per published result.
type influxActionSink struct {
	client *influxdb.Client
}

// PublishActions implements mapping.Sink.
func (s *influxActionSink) PublishActions(result mapping.ActionResult) {
	samples := len(result.Actions) + result.InvalidSamples
	latency := time.Since(result.EvaluatedAt).Microseconds()
	s.client.WriteEvaluationMetric(result.ControllerID, samples, len(result.Actions), latency)
}

// sampleMetricWriter is the slice of the InfluxDB client the ingest
// telemetry needs.
type sampleMetricWriter interface {
	WriteSampleMetric(controllerID, channel string, magnitude, latencyMs float64)
}

// sampleTelemetry records one sample metric per ingested sample before
// handing it to the sampler.
type sampleTelemetry struct {
	next    mqtt.SamplePusher
	metrics sampleMetricWriter
}

// Push implements mqtt.SamplePusher.
func (t *sampleTelemetry) Push(s sampler.Sample) error {
	var latencyMs float64
	if !s.Timestamp.IsZero() && !s.ReceivedAt.IsZero() {
		latencyMs = float64(s.ReceivedAt.Sub(s.Timestamp).Microseconds()) / 1000
	}
	t.metrics.WriteSampleMetric(s.ControllerID, s.Channel, s.Value.Magnitude(), latencyMs)
	return t.next.Push(s)
}

// controllerMetricWriter is the slice of the InfluxDB client the heartbeat
// telemetry needs.
type controllerMetricWriter interface {
	WriteControllerMetric(controllerID string, fields map[string]interface{})
}

// counterSource exposes the sampler's per-controller statistics.
type counterSource interface {
	Counters(controllerID string) (sampler.Counters, error)
}

// telemetryHeartbeater flushes the sampler's counters to InfluxDB on each
// record delivery, then forwards liveness to the controller manager.
type telemetryHeartbeater struct {
	next     sampler.Heartbeater
	counters counterSource
	metrics  controllerMetricWriter
}

// Heartbeat implements sampler.Heartbeater.
func (t *telemetryHeartbeater) Heartbeat(controllerID string) error {
	if c, err := t.counters.Counters(controllerID); err == nil {
		t.metrics.WriteControllerMetric(controllerID, map[string]interface{}{
			"received":          int64(c.Received),
			"latency_dropped":   int64(c.LatencyDropped),
			"overflow_evicted":  int64(c.OverflowEvicted),
			"records_delivered": int64(c.RecordsDelivered),
		})
	}
	return t.next.Heartbeat(controllerID)
}
