package telemetry

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// tableResult builds a query result from annotated CSV, the same wire
// format the store streams back.
func tableResult(csv string) *api.QueryTableResult {
	return api.NewQueryTableResult(io.NopCloser(strings.NewReader(csv)))
}

const sampleCSV = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string,string,string,string
#group,false,false,true,true,false,false,true,true,true,true,true
#default,_result,,,,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement,device_id,property_id,building
,,0,2026-08-20T00:00:00Z,2026-08-28T00:00:00Z,2026-08-27T10:00:00Z,21.5,value,sensor_data,comp-01,temperature,plant-a
,,0,2026-08-20T00:00:00Z,2026-08-28T00:00:00Z,2026-08-27T11:00:00Z,22.1,value,sensor_data,comp-01,temperature,plant-a

`

const errorCSV = `#datatype,string,string
#group,true,true
#default,,
,error,reference
,failed to create physical plan: invalid predicate,897

`

func TestMapResultFlattens(t *testing.T) {
	records, err := MapResult(tableResult(sampleCSV), false)
	if err != nil {
		t.Fatalf("MapResult() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	first := records[0]
	if first.Time != "2026-08-27T10:00:00Z" {
		t.Errorf("Time = %q, want RFC3339 2026-08-27T10:00:00Z", first.Time)
	}
	if first.DeviceID != "comp-01" || first.PropertyID != "temperature" {
		t.Errorf("identity = %q/%q, want comp-01/temperature", first.DeviceID, first.PropertyID)
	}
	if first.Value != 21.5 {
		t.Errorf("Value = %v, want 21.5", first.Value)
	}
	if first.Building != "plant-a" {
		t.Errorf("Building = %q, want plant-a", first.Building)
	}
	if first.Location != "" || first.Status != "" {
		t.Errorf("absent tags = %q/%q, want empty", first.Location, first.Status)
	}
	if first.Field != "" {
		t.Errorf("Field = %q, want empty when not requested", first.Field)
	}
}

func TestMapResultIncludesField(t *testing.T) {
	records, err := MapResult(tableResult(sampleCSV), true)
	if err != nil {
		t.Fatalf("MapResult() error = %v", err)
	}
	if len(records) == 0 || records[0].Field != "value" {
		t.Fatalf("records = %+v, want field carried through", records)
	}
}

func TestMapResultEmptyIsNotAnError(t *testing.T) {
	const emptyCSV = "\n"
	records, err := MapResult(tableResult(emptyCSV), false)
	if err != nil {
		t.Fatalf("MapResult() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestMapResultSurfacesQueryError(t *testing.T) {
	if _, err := MapResult(tableResult(errorCSV), false); !errors.Is(err, ErrQueryFailed) {
		t.Errorf("MapResult() error = %v, want ErrQueryFailed", err)
	}
}

func TestMapResultSkipsNonNumericRows(t *testing.T) {
	const mixedCSV = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,string,string,string,string,string
#group,false,false,true,true,false,false,true,true,true,true
#default,_result,,,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement,device_id,property_id
,,0,2026-08-20T00:00:00Z,2026-08-28T00:00:00Z,2026-08-27T10:00:00Z,running,status_text,sensor_data,comp-01,state

`
	records, err := MapResult(tableResult(mixedCSV), false)
	if err != nil {
		t.Fatalf("MapResult() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want non-numeric rows skipped", records)
	}
}
