package telemetry

import (
	"fmt"
	"time"
)

// SensorRecord is the canonical unit of stored telemetry: one reading
// from one device property at one instant, plus whatever descriptive
// and diagnostic context arrived with it.
//
// Identity and descriptive context become indexed tags; numeric
// readings become fields. Keeping that split stable is what makes the
// analytics filters cheap, so new context must never leak into fields
// and new readings must never leak into tags.
type SensorRecord struct {
	// Identity tags. Both required, never empty after normalization.
	DeviceID   string
	PropertyID string

	// The reading itself, always stored under the "value" field.
	Value float64

	// Timestamp is the reading instant in UTC at nanosecond precision.
	// Defaulted to arrival time by the normalizer when absent.
	Timestamp time.Time

	// Optional descriptive tags, written only when present.
	Building string
	Location string
	Status   string

	// Optional diagnostic fields, written only when present. Pointers
	// distinguish "absent" from a legitimate zero reading.
	BatteryLevel      *float64
	RawValue          *float64
	SignalStrength    *float64
	ErrorCode         *int
	CalibrationOffset *float64

	// mirrorField records whether the reading is additionally written
	// under a field named after PropertyID. Single- and multi-metric
	// ingest set this so per-metric field queries keep working.
	mirrorField bool
}

// Tags returns the indexed tag set for the record. Optional tags are
// omitted entirely rather than written as empty strings, keeping series
// cardinality down and letting queries distinguish absent from blank.
func (r SensorRecord) Tags() map[string]string {
	tags := map[string]string{
		"device_id":   r.DeviceID,
		"property_id": r.PropertyID,
	}
	if r.Building != "" {
		tags["building"] = r.Building
	}
	if r.Location != "" {
		tags["location"] = r.Location
	}
	if r.Status != "" {
		tags["status"] = r.Status
	}
	return tags
}

// Fields returns the field set for the record. The reading is always
// present under "value"; diagnostics appear only when supplied.
func (r SensorRecord) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"value": r.Value,
	}
	if r.mirrorField && r.PropertyID != "value" {
		fields[r.PropertyID] = r.Value
	}
	if r.BatteryLevel != nil {
		fields["battery_level"] = *r.BatteryLevel
	}
	if r.RawValue != nil {
		fields["raw_value"] = *r.RawValue
	}
	if r.SignalStrength != nil {
		fields["signal_strength"] = *r.SignalStrength
	}
	if r.ErrorCode != nil {
		fields["error_code"] = int64(*r.ErrorCode)
	}
	if r.CalibrationOffset != nil {
		fields["calibration_offset"] = *r.CalibrationOffset
	}
	return fields
}

// Validate checks the record invariants that must hold before a write.
// The normalizer establishes them; the write coordinator re-checks so
// hand-built records cannot slip through.
func (r SensorRecord) Validate() error {
	if r.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	if r.PropertyID == "" {
		return fmt.Errorf("%w: property_id is required", ErrValidation)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrValidation)
	}
	return nil
}
