package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// QueryStore is the slice of the time-series client the reader needs.
type QueryStore interface {
	Query(ctx context.Context, flux string) (*api.QueryTableResult, error)
}

// ListFilters are the optional tag constraints for a listing read.
// Empty values mean "no constraint".
type ListFilters struct {
	DeviceID   string
	Building   string
	Location   string
	PropertyID string
}

// Reader composes criteria building, store reads and result mapping
// into the three query shapes the analytics surface serves. It is the
// only component that renders Flux; handlers deal purely in values.
type Reader struct {
	store       QueryStore
	bucket      string
	measurement string
}

// NewReader returns a reader over the given bucket and measurement.
func NewReader(store QueryStore, bucket, measurement string) *Reader {
	return &Reader{store: store, bucket: bucket, measurement: measurement}
}

// ListAll returns every reading matching the filters within the last
// `days` days, most recent first. days <= 0 falls back to 7. The
// generic value field is pinned so mirrored per-metric fields do not
// produce duplicate rows.
func (r *Reader) ListAll(ctx context.Context, filters ListFilters, days int) ([]FlatRecord, error) {
	if days <= 0 {
		days = 7
	}
	criteria := NewListCriteria(r.measurement)
	criteria.Window.RelativeDays = days
	criteria.FieldFilter = "value"
	criteria.TagFilters["device_id"] = filters.DeviceID
	criteria.TagFilters["building"] = filters.Building
	criteria.TagFilters["location"] = filters.Location
	criteria.TagFilters["property_id"] = filters.PropertyID
	return r.run(ctx, criteria, false)
}

// DeviceHistory returns the readings of one device within the last
// `days` days, oldest first. A non-empty propertyID pins the read to
// the field of that name; otherwise every field the device wrote is
// returned, with the field name carried on each row.
func (r *Reader) DeviceHistory(ctx context.Context, deviceID, propertyID string, days int) ([]FlatRecord, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidCriteria)
	}
	if days <= 0 {
		days = 7
	}
	criteria := NewHistoryCriteria(r.measurement)
	criteria.Window.RelativeDays = days
	criteria.TagFilters["device_id"] = deviceID
	criteria.FieldFilter = strings.TrimSpace(propertyID)
	return r.run(ctx, criteria, true)
}

// FieldSeries returns one field's readings oldest first, optionally
// pinned to a device. A zero start and end means the last 24 hours;
// otherwise the window is half-open [start, end).
func (r *Reader) FieldSeries(ctx context.Context, field, deviceID string, start, end time.Time) ([]FlatRecord, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("%w: field is required", ErrInvalidCriteria)
	}
	criteria := NewHistoryCriteria(r.measurement)
	criteria.FieldFilter = field
	criteria.TagFilters["device_id"] = strings.TrimSpace(deviceID)
	criteria.Window.Start = start
	criteria.Window.End = end
	return r.run(ctx, criteria, false)
}

func (r *Reader) run(ctx context.Context, criteria QueryCriteria, includeField bool) ([]FlatRecord, error) {
	flux, err := criteria.BuildFlux(r.bucket)
	if err != nil {
		return nil, err
	}
	result, err := r.store.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	return MapResult(result, includeField)
}
