// Package ingest feeds bus-published telemetry into the store through a
// bounded queue. The MQTT subscription callback enqueues raw payloads
// and returns; worker goroutines decode, normalize and write. Overflow
// rejects new arrivals with a counter rather than blocking dispatch,
// and malformed payloads are logged and dropped.
package ingest
