package telemetry

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// FlatRecord is the client-facing shape of one stored reading: flat
// key/value pairs with an RFC 3339 timestamp, independent of the
// store's columnar result encoding. Optional tags are omitted entirely
// when a point was written without them.
type FlatRecord struct {
	Time       string  `json:"time"`
	DeviceID   string  `json:"device_id"`
	PropertyID string  `json:"property_id"`
	Field      string  `json:"field,omitempty"`
	Value      float64 `json:"value"`
	Building   string  `json:"building,omitempty"`
	Location   string  `json:"location,omitempty"`
	Status     string  `json:"status,omitempty"`
}

// MapResult flattens a store query result into client records,
// consuming and closing it. Rows whose value is not numeric are skipped
// rather than surfaced as zeros. includeField carries the _field column
// through for queries that did not pin a single field.
//
// A store-side error mid-stream fails the whole mapping: a truncated
// result must never masquerade as a complete one.
func MapResult(result *api.QueryTableResult, includeField bool) ([]FlatRecord, error) {
	defer result.Close()

	records := make([]FlatRecord, 0, 64)
	for result.Next() {
		rec := result.Record()
		value, ok := numericValue(rec.Value())
		if !ok {
			continue
		}

		flat := FlatRecord{
			Time:       rec.Time().UTC().Format(time.RFC3339Nano),
			DeviceID:   stringColumn(rec.ValueByKey("device_id")),
			PropertyID: stringColumn(rec.ValueByKey("property_id")),
			Value:      value,
			Building:   stringColumn(rec.ValueByKey("building")),
			Location:   stringColumn(rec.ValueByKey("location")),
			Status:     stringColumn(rec.ValueByKey("status")),
		}
		if includeField {
			flat.Field = rec.Field()
		}
		records = append(records, flat)
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return records, nil
}

func stringColumn(v interface{}) string {
	s, _ := v.(string)
	return s
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
