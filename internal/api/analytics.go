package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/factorystack/telemetry-core/internal/telemetry"
)

// temperatureField is the metric served by the fixed-series endpoint.
const temperatureField = "temperature"

// handleAnalyticsAll lists records matching the optional tag filters,
// most recent first.
//
// GET /api/v1/analytics/all?device_id=&building=&location=&property_id=&days=
func (s *Server) handleAnalyticsAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := telemetry.ListFilters{
		DeviceID:   q.Get("device_id"),
		Building:   q.Get("building"),
		Location:   q.Get("location"),
		PropertyID: q.Get("property_id"),
	}

	days, err := parseDays(q.Get("days"))
	if err != nil {
		writeBadRequest(w, "days must be a positive integer")
		return
	}

	records, err := s.reader.ListAll(r.Context(), filters, days)
	if err != nil {
		s.queryFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(records),
		"filters_used": map[string]string{
			"device_id":   filters.DeviceID,
			"building":    filters.Building,
			"location":    filters.Location,
			"property_id": filters.PropertyID,
		},
		"data": records,
	})
}

// handleAnalyticsHistory returns one device's readings oldest first.
//
// GET /api/v1/analytics/history?device_id=&property_id=&days=
func (s *Server) handleAnalyticsHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deviceID := q.Get("device_id")
	propertyID := q.Get("property_id")

	days, err := parseDays(q.Get("days"))
	if err != nil {
		writeBadRequest(w, "days must be a positive integer")
		return
	}

	records, err := s.reader.DeviceHistory(r.Context(), deviceID, propertyID, days)
	if err != nil {
		s.queryFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":   deviceID,
		"property_id": propertyID,
		"count":       len(records),
		"data":        records,
	})
}

// temperaturePoint is one row of the fixed temperature series.
type temperaturePoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// handleAnalyticsTemperature returns the temperature series, oldest
// first, default window last 24 hours.
//
// GET /api/v1/analytics/temperature?device_id=&start=&end=
func (s *Server) handleAnalyticsTemperature(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, end, err := parseWindow(q.Get("start"), q.Get("end"))
	if err != nil {
		writeBadRequest(w, "start and end must both be RFC 3339 timestamps")
		return
	}

	records, err := s.reader.FieldSeries(r.Context(), temperatureField, q.Get("device_id"), start, end)
	if err != nil {
		s.queryFailure(w, r, err)
		return
	}

	series := make([]temperaturePoint, 0, len(records))
	for _, rec := range records {
		series = append(series, temperaturePoint{Time: rec.Time, Value: rec.Value})
	}
	writeJSON(w, http.StatusOK, series)
}

// queryFailure maps a read-path failure to a response. Bad criteria are
// the client's fault; a store failure is surfaced as such, never as an
// empty result.
func (s *Server) queryFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, telemetry.ErrInvalidCriteria) {
		writeBadRequest(w, "invalid query parameter")
		return
	}
	s.logger.Error("store query failed",
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID))
	writeBadGateway(w, "query failed: "+err.Error())
}

// parseDays parses the days parameter. Empty means "use the default".
func parseDays(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 0, errors.New("days must be a positive integer")
	}
	return days, nil
}

// parseWindow parses an optional absolute window. Both bounds or none.
func parseWindow(rawStart, rawEnd string) (time.Time, time.Time, error) {
	if rawStart == "" && rawEnd == "" {
		return time.Time{}, time.Time{}, nil
	}
	start, err := time.Parse(time.RFC3339, rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
