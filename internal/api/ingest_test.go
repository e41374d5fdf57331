package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body %q is not JSON: %v", rec.Body.String(), err)
	}
	return body
}

func TestIngestSingleReading(t *testing.T) {
	store := &fakeStore{}
	handler := testHandler(t, store)

	rec := postJSON(t, handler, "/api/v1/ingest",
		`{"device_id":"comp-01","property_id":"temperature","value":21.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
	if len(store.points) != 1 {
		t.Fatalf("store has %d points, want 1", len(store.points))
	}

	fields := make(map[string]any)
	for _, f := range store.points[0].FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["value"] != 21.5 || fields["temperature"] != 21.5 {
		t.Errorf("fields = %v, want value mirrored under temperature", fields)
	}
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing device", `{"property_id":"t","value":1}`},
		{"blank device", `{"device_id":"   ","property_id":"t","value":1}`},
		{"missing property", `{"device_id":"d","value":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			handler := testHandler(t, store)
			rec := postJSON(t, handler, "/api/v1/ingest", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(store.points) != 0 {
				t.Errorf("store has %d points, want 0", len(store.points))
			}
			// Generic message only, no internal detail.
			if msg := decodeBody(t, rec)["message"]; msg == "" {
				t.Error("error response has no message")
			}
		})
	}
}

func TestIngestStoreFailureIsNotMasked(t *testing.T) {
	store := &fakeStore{writeErr: errors.New("unreachable")}
	handler := testHandler(t, store)

	rec := postJSON(t, handler, "/api/v1/ingest",
		`{"device_id":"d","property_id":"t","value":1}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "unreachable") {
		t.Error("response leaks internal store detail")
	}
}

func TestDatapointFullMetadata(t *testing.T) {
	store := &fakeStore{}
	handler := testHandler(t, store)

	rec := postJSON(t, handler, "/api/v1/datapoint",
		`{"device_id":"hvac-7","property_id":"humidity","value":44.1,"building":"plant-a","battery_level":87.5,"error_code":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["status"] != "success" || body["device_id"] != "hvac-7" || body["property_id"] != "humidity" {
		t.Errorf("body = %v, want echoed identity", body)
	}

	if len(store.points) != 1 {
		t.Fatalf("store has %d points, want 1", len(store.points))
	}
	tags := make(map[string]string)
	for _, tag := range store.points[0].TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["building"] != "plant-a" {
		t.Errorf("tags = %v, want building plant-a", tags)
	}
	if _, ok := tags["location"]; ok {
		t.Error("absent location written as a tag")
	}
	fields := make(map[string]any)
	for _, f := range store.points[0].FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["battery_level"] != 87.5 || fields["error_code"] != int64(3) {
		t.Errorf("fields = %v, want diagnostics carried", fields)
	}
}

func TestSensorDataMultiMetric(t *testing.T) {
	store := &fakeStore{}
	handler := testHandler(t, store)

	rec := postJSON(t, handler, "/api/v1/sensor-data",
		`{"device_id":"press-9","temperature":65.2,"pressure":7.7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["message"] != "Sensor data stored successfully" || body["device_id"] != "press-9" {
		t.Errorf("body = %v, want message and device echoed", body)
	}
	if body["temperature"] != 65.2 || body["pressure"] != 7.7 {
		t.Errorf("body = %v, want metrics echoed", body)
	}
	if len(store.points) != 2 {
		t.Errorf("store has %d points, want one per metric", len(store.points))
	}
}

func TestSensorDataRequiresDevice(t *testing.T) {
	store := &fakeStore{}
	handler := testHandler(t, store)

	rec := postJSON(t, handler, "/api/v1/sensor-data", `{"temperature":65.2}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: no fallback identity on the HTTP path", rec.Code)
	}
}

func TestIngestRejectsOversizedBody(t *testing.T) {
	store := &fakeStore{}
	handler := testHandler(t, store)

	huge := `{"device_id":"d","property_id":"t","value":1,"pad":"` +
		strings.Repeat("x", maxRequestBodySize) + `"}`
	rec := postJSON(t, handler, "/api/v1/ingest", huge)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}
