package telemetry

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Store is the slice of the time-series client the write coordinator
// needs. The concrete implementation lives in infrastructure/influxdb.
type Store interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
}

// Writer converts canonical records into store points and hands them to
// the store in a single batch. The store call is synchronous: when
// WriteRecords returns nil the batch has been accepted, so callers can
// acknowledge their producers truthfully.
type Writer struct {
	store       Store
	measurement string
}

// NewWriter returns a write coordinator targeting the given measurement.
func NewWriter(store Store, measurement string) *Writer {
	return &Writer{store: store, measurement: measurement}
}

// WriteRecords validates and persists a batch of records. Validation
// failures surface before anything is written, so a batch is stored
// either whole or not at all. An empty batch is a no-op.
func (w *Writer) WriteRecords(ctx context.Context, records ...SensorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		points = append(points, write.NewPoint(w.measurement, rec.Tags(), rec.Fields(), rec.Timestamp))
	}

	if err := w.store.WritePoints(ctx, points...); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
