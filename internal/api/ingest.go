package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/factorystack/telemetry-core/internal/telemetry"
)

// singleReadingRequest is the body for POST /api/v1/ingest.
type singleReadingRequest struct {
	DeviceID   string     `json:"device_id"`
	PropertyID string     `json:"property_id"`
	Value      float64    `json:"value"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// handleIngest accepts one reading and acknowledges only after the
// store took it.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req singleReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	rec, err := telemetry.NormalizeSingle(telemetry.SingleMetricInput{
		DeviceID:   req.DeviceID,
		PropertyID: req.PropertyID,
		Value:      req.Value,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		writeBadRequest(w, "invalid sensor reading")
		return
	}

	if err := s.writer.WriteRecords(r.Context(), rec); err != nil {
		s.ingestFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// datapointRequest is the body for POST /api/v1/datapoint.
type datapointRequest struct {
	DeviceID   string     `json:"device_id"`
	PropertyID string     `json:"property_id"`
	Value      float64    `json:"value"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`

	Building string `json:"building,omitempty"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`

	BatteryLevel      *float64 `json:"battery_level,omitempty"`
	RawValue          *float64 `json:"raw_value,omitempty"`
	SignalStrength    *float64 `json:"signal_strength,omitempty"`
	ErrorCode         *int     `json:"error_code,omitempty"`
	CalibrationOffset *float64 `json:"calibration_offset,omitempty"`
}

// handleDatapoint accepts one reading with full descriptive and
// diagnostic context.
func (s *Server) handleDatapoint(w http.ResponseWriter, r *http.Request) {
	var req datapointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	rec, err := telemetry.NormalizeFull(telemetry.FullMetadataInput{
		DeviceID:          req.DeviceID,
		PropertyID:        req.PropertyID,
		Value:             req.Value,
		Timestamp:         req.Timestamp,
		Building:          req.Building,
		Location:          req.Location,
		Status:            req.Status,
		BatteryLevel:      req.BatteryLevel,
		RawValue:          req.RawValue,
		SignalStrength:    req.SignalStrength,
		ErrorCode:         req.ErrorCode,
		CalibrationOffset: req.CalibrationOffset,
	})
	if err != nil {
		writeBadRequest(w, "invalid sensor reading")
		return
	}

	if err := s.writer.WriteRecords(r.Context(), rec); err != nil {
		s.ingestFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"device_id":   rec.DeviceID,
		"property_id": rec.PropertyID,
		"value":       rec.Value,
	})
}

// handleSensorData accepts a flat multi-metric object: device_id and
// timestamp are envelope keys, every other key is a metric.
func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	// No fallback identity on the HTTP path: the caller must say who
	// the readings belong to.
	input, err := telemetry.ParseFlatPayload(payload, "")
	if err != nil {
		writeBadRequest(w, "invalid sensor payload")
		return
	}

	records, err := telemetry.NormalizeMulti(input)
	if len(records) == 0 {
		writeBadRequest(w, "invalid sensor payload")
		return
	}
	if err != nil {
		s.logger.Warn("some metrics rejected",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID))
	}

	if err := s.writer.WriteRecords(r.Context(), records...); err != nil {
		s.ingestFailure(w, r, err)
		return
	}

	body := map[string]any{
		"message":   "Sensor data stored successfully",
		"device_id": records[0].DeviceID,
	}
	for _, rec := range records {
		body[rec.PropertyID] = rec.Value
	}
	writeJSON(w, http.StatusOK, body)
}

// ingestFailure maps a write-path failure to a response. Validation
// slips are the client's fault; anything else is the store's, reported
// without internal detail.
func (s *Server) ingestFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, telemetry.ErrValidation) {
		writeBadRequest(w, "invalid sensor reading")
		return
	}
	s.logger.Error("store write failed",
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID))
	writeBadGateway(w, "failed to store sensor data")
}
