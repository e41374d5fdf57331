package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeSingleTrimsIdentity(t *testing.T) {
	rec, err := NormalizeSingle(SingleMetricInput{
		DeviceID:   "  comp-01  ",
		PropertyID: "\ttemperature\n",
		Value:      21.5,
	})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	if rec.DeviceID != "comp-01" {
		t.Errorf("DeviceID = %q, want %q", rec.DeviceID, "comp-01")
	}
	if rec.PropertyID != "temperature" {
		t.Errorf("PropertyID = %q, want %q", rec.PropertyID, "temperature")
	}
	if rec.Value != 21.5 {
		t.Errorf("Value = %v, want 21.5", rec.Value)
	}
}

func TestNormalizeSingleRejectsEmptyIdentity(t *testing.T) {
	tests := []struct {
		name string
		in   SingleMetricInput
	}{
		{"empty device", SingleMetricInput{DeviceID: "", PropertyID: "temperature"}},
		{"whitespace device", SingleMetricInput{DeviceID: "   ", PropertyID: "temperature"}},
		{"empty property", SingleMetricInput{DeviceID: "comp-01", PropertyID: ""}},
		{"whitespace property", SingleMetricInput{DeviceID: "comp-01", PropertyID: " \t "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeSingle(tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("NormalizeSingle() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNormalizeSingleDefaultsTimestamp(t *testing.T) {
	before := time.Now().UTC()
	rec, err := NormalizeSingle(SingleMetricInput{DeviceID: "comp-01", PropertyID: "pressure", Value: 6.2})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	after := time.Now().UTC()
	if rec.Timestamp.Before(before) || rec.Timestamp.After(after) {
		t.Errorf("defaulted Timestamp = %v, want within [%v, %v]", rec.Timestamp, before, after)
	}
}

func TestNormalizeSinglePreservesTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 27, 9, 30, 0, 123456789, time.FixedZone("CET", 3600))
	rec, err := NormalizeSingle(SingleMetricInput{DeviceID: "d", PropertyID: "p", Timestamp: &ts})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, ts)
	}
	if rec.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", rec.Timestamp.Location())
	}
}

func TestNormalizeSingleMirrorsField(t *testing.T) {
	rec, err := NormalizeSingle(SingleMetricInput{DeviceID: "comp-01", PropertyID: "pressure", Value: 6.2})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	fields := rec.Fields()
	if got := fields["value"]; got != 6.2 {
		t.Errorf("fields[value] = %v, want 6.2", got)
	}
	if got := fields["pressure"]; got != 6.2 {
		t.Errorf("fields[pressure] = %v, want 6.2", got)
	}
}

func TestNormalizeSingleDoesNotDuplicateValueField(t *testing.T) {
	rec, err := NormalizeSingle(SingleMetricInput{DeviceID: "comp-01", PropertyID: "value", Value: 1})
	if err != nil {
		t.Fatalf("NormalizeSingle() error = %v", err)
	}
	if got := len(rec.Fields()); got != 1 {
		t.Errorf("len(fields) = %d, want 1", got)
	}
}

func TestNormalizeFullOptionalContext(t *testing.T) {
	battery := 87.5
	code := 3
	rec, err := NormalizeFull(FullMetadataInput{
		DeviceID:     "hvac-7",
		PropertyID:   "humidity",
		Value:        44.1,
		Building:     " plant-a ",
		Status:       "  ",
		BatteryLevel: &battery,
		ErrorCode:    &code,
	})
	if err != nil {
		t.Fatalf("NormalizeFull() error = %v", err)
	}

	tags := rec.Tags()
	if got := tags["building"]; got != "plant-a" {
		t.Errorf("tags[building] = %q, want %q", got, "plant-a")
	}
	if _, ok := tags["status"]; ok {
		t.Error("blank status should not appear as a tag")
	}
	if _, ok := tags["location"]; ok {
		t.Error("absent location should not appear as a tag")
	}

	fields := rec.Fields()
	if got := fields["battery_level"]; got != 87.5 {
		t.Errorf("fields[battery_level] = %v, want 87.5", got)
	}
	if got := fields["error_code"]; got != int64(3) {
		t.Errorf("fields[error_code] = %v (%T), want int64(3)", got, got)
	}
	if _, ok := fields["raw_value"]; ok {
		t.Error("absent raw_value should not appear as a field")
	}
	if _, ok := fields["humidity"]; ok {
		t.Error("full-metadata records should not mirror the value field")
	}
}

func TestNormalizeMultiFansOut(t *testing.T) {
	ts := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	records, err := NormalizeMulti(MultiMetricInput{
		DeviceID:  "compressor-3",
		Timestamp: &ts,
		Metrics: map[string]interface{}{
			"temperature": 72.4,
			"pressure":    6.1,
			"vibration":   "0.03",
		},
	})
	if err != nil {
		t.Fatalf("NormalizeMulti() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	// Sorted by metric name for deterministic output.
	wantOrder := []string{"pressure", "temperature", "vibration"}
	for i, rec := range records {
		if rec.PropertyID != wantOrder[i] {
			t.Errorf("records[%d].PropertyID = %q, want %q", i, rec.PropertyID, wantOrder[i])
		}
		if rec.DeviceID != "compressor-3" {
			t.Errorf("records[%d].DeviceID = %q, want compressor-3", i, rec.DeviceID)
		}
		if !rec.Timestamp.Equal(ts) {
			t.Errorf("records[%d].Timestamp = %v, want shared %v", i, rec.Timestamp, ts)
		}
	}
	if records[2].Value != 0.03 {
		t.Errorf("string-encoded metric = %v, want 0.03", records[2].Value)
	}
}

func TestNormalizeMultiIsolatesBadMetrics(t *testing.T) {
	records, err := NormalizeMulti(MultiMetricInput{
		DeviceID: "compressor-3",
		Metrics: map[string]interface{}{
			"temperature": 72.4,
			"state":       "running",
			"alarm":       true,
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("NormalizeMulti() error = %v, want ErrValidation for bad siblings", err)
	}
	if len(records) != 1 || records[0].PropertyID != "temperature" {
		t.Fatalf("records = %+v, want the single good metric to survive", records)
	}
}

func TestNormalizeMultiRejects(t *testing.T) {
	tests := []struct {
		name string
		in   MultiMetricInput
	}{
		{"no device", MultiMetricInput{Metrics: map[string]interface{}{"t": 1.0}}},
		{"no metrics", MultiMetricInput{DeviceID: "d"}},
		{"all metrics bad", MultiMetricInput{DeviceID: "d", Metrics: map[string]interface{}{"state": "on"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NormalizeMulti(tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("NormalizeMulti() error = %v, want ErrValidation", err)
			}
			if len(records) != 0 {
				t.Errorf("records = %+v, want none", records)
			}
		})
	}
}

func TestParseFlatPayload(t *testing.T) {
	in, err := ParseFlatPayload(map[string]interface{}{
		"device_id":   "press-9",
		"timestamp":   "2026-08-27T08:00:00Z",
		"temperature": 65.0,
		"pressure":    7.7,
	}, "mqtt_device")
	if err != nil {
		t.Fatalf("ParseFlatPayload() error = %v", err)
	}
	if in.DeviceID != "press-9" {
		t.Errorf("DeviceID = %q, want press-9", in.DeviceID)
	}
	if in.Timestamp == nil || !in.Timestamp.Equal(time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v, want 2026-08-27T08:00:00Z", in.Timestamp)
	}
	if len(in.Metrics) != 2 {
		t.Errorf("len(Metrics) = %d, want 2 (envelope keys excluded)", len(in.Metrics))
	}
}

func TestParseFlatPayloadDefaultsDevice(t *testing.T) {
	in, err := ParseFlatPayload(map[string]interface{}{"temperature": 65.0}, "mqtt_device")
	if err != nil {
		t.Fatalf("ParseFlatPayload() error = %v", err)
	}
	if in.DeviceID != "mqtt_device" {
		t.Errorf("DeviceID = %q, want fallback mqtt_device", in.DeviceID)
	}
	if in.Timestamp != nil {
		t.Errorf("Timestamp = %v, want nil when absent", in.Timestamp)
	}
}

func TestParseFlatPayloadEpochTimestamp(t *testing.T) {
	in, err := ParseFlatPayload(map[string]interface{}{
		"timestamp":   1787558400.5,
		"temperature": 1.0,
	}, "mqtt_device")
	if err != nil {
		t.Fatalf("ParseFlatPayload() error = %v", err)
	}
	want := time.Unix(1787558400, int64(500*time.Millisecond)).UTC()
	if in.Timestamp == nil || !in.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", in.Timestamp, want)
	}
}

func TestParseFlatPayloadRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"nil payload", nil},
		{"bad timestamp string", map[string]interface{}{"timestamp": "yesterday", "t": 1.0}},
		{"bad timestamp type", map[string]interface{}{"timestamp": true, "t": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlatPayload(tt.payload, "mqtt_device"); !errors.Is(err, ErrValidation) {
				t.Errorf("ParseFlatPayload() error = %v, want ErrValidation", err)
			}
		})
	}
}
