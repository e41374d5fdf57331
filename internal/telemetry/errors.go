package telemetry

import "errors"

// Sentinel errors for the telemetry core.
//
// These form the failure taxonomy shared by the HTTP handlers and the
// message-bus pipeline. Use errors.Is() to classify:
//
//	if errors.Is(err, telemetry.ErrValidation) {
//	    // reject the payload, it never reached the store
//	}
var (
	// ErrValidation indicates a payload failed normalization: missing or
	// empty identity fields, or a non-numeric metric value.
	ErrValidation = errors.New("telemetry: validation failed")

	// ErrInvalidCriteria indicates a filter value is unsafe or malformed.
	// Detected before any store round-trip.
	ErrInvalidCriteria = errors.New("telemetry: invalid query criteria")

	// ErrWriteFailed indicates the store rejected a batch or was
	// unreachable during a write.
	ErrWriteFailed = errors.New("telemetry: write failed")

	// ErrQueryFailed indicates the store rejected a query or was
	// unreachable during a read.
	ErrQueryFailed = errors.New("telemetry: query failed")
)
