// Package influxdb provides InfluxDB connectivity for Telemetry Core.
//
// It wraps the official influxdb-client-go v2 library with Telemetry
// Core-specific patterns for connection management, synchronous batch
// writes, Flux query execution, and health monitoring.
//
// # Purpose
//
// This package is the single store-client handle for:
//   - Persisting normalized sensor records (Write Coordinator)
//   - Executing Flux queries built by the criteria builder (analytics)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "ai_factory",
//	    Bucket: "machine_data",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// A single long-lived Client is shared by the HTTP handlers and the
// message-bus workers; there is no per-call connection churn.
//
// # Error Handling
//
// Writes are blocking: errors are returned from WritePoints directly,
// wrapped in ErrWriteFailed. Query errors wrap ErrQueryFailed. Every
// store round-trip carries a bounded timeout and propagates caller
// cancellation.
package influxdb
