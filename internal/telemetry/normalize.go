package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SingleMetricInput is one named reading from one device. The common
// shape for direct instrument pushes.
type SingleMetricInput struct {
	DeviceID   string
	PropertyID string
	Value      float64
	Timestamp  *time.Time
}

// FullMetadataInput is one reading with full descriptive and diagnostic
// context, as produced by gateway-class devices.
type FullMetadataInput struct {
	DeviceID   string
	PropertyID string
	Value      float64
	Timestamp  *time.Time

	Building string
	Location string
	Status   string

	BatteryLevel      *float64
	RawValue          *float64
	SignalStrength    *float64
	ErrorCode         *int
	CalibrationOffset *float64
}

// MultiMetricInput is a batch of readings sharing one device and one
// instant, keyed by metric name. The shape message-bus devices publish.
type MultiMetricInput struct {
	DeviceID  string
	Timestamp *time.Time
	Metrics   map[string]interface{}
}

// NormalizeSingle converts a single-metric submission into a canonical
// record. Identity fields are whitespace-trimmed and must be non-empty;
// a missing timestamp defaults to arrival time.
func NormalizeSingle(in SingleMetricInput) (SensorRecord, error) {
	deviceID := strings.TrimSpace(in.DeviceID)
	propertyID := strings.TrimSpace(in.PropertyID)
	if deviceID == "" {
		return SensorRecord{}, fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	if propertyID == "" {
		return SensorRecord{}, fmt.Errorf("%w: property_id is required", ErrValidation)
	}
	return SensorRecord{
		DeviceID:    deviceID,
		PropertyID:  propertyID,
		Value:       in.Value,
		Timestamp:   normalizeTimestamp(in.Timestamp),
		mirrorField: true,
	}, nil
}

// NormalizeFull converts a full-metadata submission into a canonical
// record. Descriptive tags are trimmed and dropped when empty;
// diagnostic fields pass through untouched.
func NormalizeFull(in FullMetadataInput) (SensorRecord, error) {
	deviceID := strings.TrimSpace(in.DeviceID)
	propertyID := strings.TrimSpace(in.PropertyID)
	if deviceID == "" {
		return SensorRecord{}, fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	if propertyID == "" {
		return SensorRecord{}, fmt.Errorf("%w: property_id is required", ErrValidation)
	}
	return SensorRecord{
		DeviceID:          deviceID,
		PropertyID:        propertyID,
		Value:             in.Value,
		Timestamp:         normalizeTimestamp(in.Timestamp),
		Building:          strings.TrimSpace(in.Building),
		Location:          strings.TrimSpace(in.Location),
		Status:            strings.TrimSpace(in.Status),
		BatteryLevel:      in.BatteryLevel,
		RawValue:          in.RawValue,
		SignalStrength:    in.SignalStrength,
		ErrorCode:         in.ErrorCode,
		CalibrationOffset: in.CalibrationOffset,
	}, nil
}

// NormalizeMulti fans a batch submission out into one record per metric
// key, all sharing the batch device and timestamp. Metric keys are
// trimmed; keys that are empty after trimming or whose values do not
// coerce to a number are skipped without aborting their siblings, and
// reported in the returned error alongside any records produced.
//
// The records slice is ordered by metric name so repeated normalization
// of the same batch is deterministic.
func NormalizeMulti(in MultiMetricInput) ([]SensorRecord, error) {
	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	if len(in.Metrics) == 0 {
		return nil, fmt.Errorf("%w: no metrics in payload", ErrValidation)
	}

	ts := normalizeTimestamp(in.Timestamp)

	names := make([]string, 0, len(in.Metrics))
	for name := range in.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]SensorRecord, 0, len(in.Metrics))
	var failures []error
	for _, name := range names {
		metric := strings.TrimSpace(name)
		if metric == "" {
			failures = append(failures, fmt.Errorf("%w: empty metric name", ErrValidation))
			continue
		}
		value, err := coerceFloat(in.Metrics[name])
		if err != nil {
			failures = append(failures, fmt.Errorf("%w: metric %q: %v", ErrValidation, metric, err))
			continue
		}
		records = append(records, SensorRecord{
			DeviceID:    deviceID,
			PropertyID:  metric,
			Value:       value,
			Timestamp:   ts,
			mirrorField: true,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no usable metrics in payload: %w", errors.Join(failures...))
	}
	return records, errors.Join(failures...)
}

// ParseFlatPayload interprets a decoded JSON object as a multi-metric
// batch: "device_id" and "timestamp" are envelope keys, everything else
// is a metric. Device identity falls back to defaultDeviceID so
// anonymous bus publishers still land somewhere queryable.
func ParseFlatPayload(payload map[string]interface{}, defaultDeviceID string) (MultiMetricInput, error) {
	if payload == nil {
		return MultiMetricInput{}, fmt.Errorf("%w: payload is not an object", ErrValidation)
	}

	in := MultiMetricInput{
		DeviceID: defaultDeviceID,
		Metrics:  make(map[string]interface{}, len(payload)),
	}

	for key, value := range payload {
		switch key {
		case "device_id":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				in.DeviceID = strings.TrimSpace(s)
			}
		case "timestamp":
			ts, err := parseTimestamp(value)
			if err != nil {
				return MultiMetricInput{}, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			in.Timestamp = &ts
		default:
			in.Metrics[key] = value
		}
	}
	return in, nil
}

// normalizeTimestamp pins a reading instant to UTC, defaulting to now.
func normalizeTimestamp(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// parseTimestamp accepts the timestamp encodings seen on the bus:
// RFC3339 strings and unix epoch numbers (seconds, fractional allowed).
func parseTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
		}
		return ts.UTC(), nil
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable timestamp %q", v.String())
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// coerceFloat converts the numeric encodings JSON decoding can produce.
// Booleans and structured values are rejected rather than guessed at.
func coerceFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", v.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric value of type %T", value)
	}
}
