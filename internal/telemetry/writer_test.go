package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeStore struct {
	points []*write.Point
	calls  int
	err    error
}

func (s *fakeStore) WritePoints(_ context.Context, points ...*write.Point) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.points = append(s.points, points...)
	return nil
}

func TestWriteRecordsBuildsPoints(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store, "sensor_data")
	ts := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	rec, err := NormalizeFull(FullMetadataInput{
		DeviceID:   "hvac-7",
		PropertyID: "humidity",
		Value:      44.1,
		Timestamp:  &ts,
		Building:   "plant-a",
	})
	if err != nil {
		t.Fatalf("NormalizeFull() error = %v", err)
	}
	if err := writer.WriteRecords(context.Background(), rec); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	if len(store.points) != 1 {
		t.Fatalf("store received %d points, want 1", len(store.points))
	}

	point := store.points[0]
	if point.Name() != "sensor_data" {
		t.Errorf("point measurement = %q, want sensor_data", point.Name())
	}
	if !point.Time().Equal(ts) {
		t.Errorf("point time = %v, want %v", point.Time(), ts)
	}

	tags := make(map[string]string)
	for _, tag := range point.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device_id"] != "hvac-7" || tags["building"] != "plant-a" {
		t.Errorf("point tags = %v, want device_id and building set", tags)
	}

	fields := make(map[string]interface{})
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}
	if fields["value"] != 44.1 {
		t.Errorf("point fields = %v, want value 44.1", fields)
	}
}

func TestWriteRecordsEmptyBatchIsNoOp(t *testing.T) {
	store := &fakeStore{}
	if err := NewWriter(store, "sensor_data").WriteRecords(context.Background()); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times for empty batch, want 0", store.calls)
	}
}

func TestWriteRecordsRejectsInvalidBeforeWriting(t *testing.T) {
	store := &fakeStore{}
	writer := NewWriter(store, "sensor_data")

	good, err := NormalizeSingle(SingleMetricInput{DeviceID: "d", PropertyID: "p", Value: 1})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	bad := SensorRecord{DeviceID: "d"} // no property, no timestamp

	err = writer.WriteRecords(context.Background(), good, bad)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("WriteRecords() error = %v, want ErrValidation", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times, want 0: batches are all or nothing", store.calls)
	}
}

func TestWriteRecordsWrapsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	writer := NewWriter(store, "sensor_data")

	rec, err := NormalizeSingle(SingleMetricInput{DeviceID: "d", PropertyID: "p", Value: 1})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	if err := writer.WriteRecords(context.Background(), rec); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("WriteRecords() error = %v, want ErrWriteFailed", err)
	}
}
