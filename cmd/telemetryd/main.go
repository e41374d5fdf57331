// Telemetry Core - Industrial Sensor Telemetry Service
//
// This is the main entry point for the Telemetry Core daemon. It wires
// together the MQTT ingestion pipeline, the InfluxDB store client and
// the HTTP analytics API, and supervises their lifecycles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/factorystack/telemetry-core/internal/api"
	"github.com/factorystack/telemetry-core/internal/infrastructure/config"
	"github.com/factorystack/telemetry-core/internal/infrastructure/influxdb"
	"github.com/factorystack/telemetry-core/internal/infrastructure/logging"
	"github.com/factorystack/telemetry-core/internal/infrastructure/mqtt"
	"github.com/factorystack/telemetry-core/internal/ingest"
	"github.com/factorystack/telemetry-core/internal/telemetry"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Telemetry Core",
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

	// Connect to InfluxDB. The store is not optional here: every
	// surface of this service exists to read or write it.
	store, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	defer func() {
		log.Info("closing InfluxDB connection")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	}()
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)

	// Domain services over the shared store handle
	writer := telemetry.NewWriter(store, cfg.InfluxDB.Measurement)
	reader := telemetry.NewReader(store, cfg.InfluxDB.Bucket, cfg.InfluxDB.Measurement)

	// Ingest pipeline: bounded queue between bus dispatch and the store
	pipeline := ingest.New(cfg.Ingest, writer, log)
	pipeline.Start(ctx)
	defer pipeline.Stop()

	// Connect to MQTT broker and subscribe the pipeline to the
	// telemetry topic
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if err := mqttClient.Subscribe(cfg.MQTT.Topic, byte(cfg.MQTT.QoS), pipeline.Handler()); err != nil {
		return fmt.Errorf("subscribing to %s: %w", cfg.MQTT.Topic, err)
	}
	log.Info("subscribed to telemetry topic", "topic", cfg.MQTT.Topic)

	// Start HTTP API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Writer:  writer,
		Reader:  reader,
		Store:   store,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, store, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. MQTT (stop accepting bus messages)
	// 3. Ingest pipeline (drain queued payloads)
	// 4. InfluxDB

	log.Info("Telemetry Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TELEMETRY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TELEMETRY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
func healthCheck(ctx context.Context, store *influxdb.Client, mqttClient *mqtt.Client) error {
	if err := store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("influxdb: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
