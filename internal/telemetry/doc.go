// Package telemetry is the domain core: canonical sensor records, the
// normalizers that produce them from the ingestion surfaces, the write
// coordinator that persists them, and the criteria builder and result
// mapper behind the analytics reads.
//
// The package owns the tag/field contract of the store schema. Identity
// and descriptive context (device_id, property_id, building, location,
// status) are tags; readings and diagnostics are fields. Everything
// upstream hands this package raw input; everything downstream receives
// validated values. No other package renders Flux.
package telemetry
