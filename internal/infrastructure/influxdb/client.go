package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/factorystack/telemetry-core/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultQueryTimeout   = 15 * time.Second
)

// Client wraps the InfluxDB v2 client with Telemetry Core-specific functionality.
//
// It provides connection management, synchronous batch writes at nanosecond
// precision, Flux query execution, and health monitoring.
//
// Writes are blocking: WritePoints returns only after the whole batch has
// been accepted or rejected by the server, so callers never observe a
// silently buffered write.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - One Client is shared across all request handlers and bus workers;
//     it is opened at process start and closed at process shutdown.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	cfg      config.InfluxDBConfig

	writeTimeout time.Duration

	// connected tracks current connection state.
	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication and nanosecond precision
//  2. Verifies connectivity with a ping
//  3. Creates the blocking write API and the query API
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the connection cannot be verified
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	queryTimeout := time.Duration(cfg.QueryTimeout) * time.Second
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	// The query timeout is applied at the HTTP client level rather than
	// per call: a query result streams from the response body after
	// Query returns, so a per-call context would be cancelled while the
	// caller is still iterating. The HTTP timeout covers the whole
	// exchange, body included.
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetPrecision(time.Nanosecond).
			SetHTTPRequestTimeout(uint(queryTimeout/time.Second)),
	)

	// Verify connectivity
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &Client{
		client:       client,
		writeAPI:     client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI:     client.QueryAPI(cfg.Org),
		cfg:          cfg,
		writeTimeout: writeTimeout,
		connected:    true,
	}, nil
}

// WritePoints submits one or more points to the configured bucket as a
// single synchronous batch.
//
// All points are submitted together; if the server rejects the batch or is
// unreachable the whole batch fails and an error wrapping ErrWriteFailed is
// returned. There is no internal retry.
//
// The call honours caller cancellation and is additionally bounded by the
// configured write timeout.
func (c *Client) WritePoints(ctx context.Context, points ...*write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(points) == 0 {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := c.writeAPI.WritePoint(writeCtx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return nil
}

// Query executes a Flux query and returns the raw table result.
//
// The caller owns the result and must drain or close it. The result
// streams from the server after this method returns, so no per-call
// timeout context is layered on ctx here: cancelling it on return would
// kill the stream mid-iteration. Caller cancellation still propagates
// through ctx, and the client-wide HTTP request timeout set at Connect
// bounds the whole exchange including body reads.
func (c *Client) Query(ctx context.Context, flux string) (*api.QueryTableResult, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return result, nil
}

// Close gracefully shuts down the InfluxDB connection.
//
// Returns:
//   - error: nil (InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.client.Close()

	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
