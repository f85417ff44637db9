package read

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes structural read failures.
type ErrorCode string

const (
	// ErrCodeNoDevices indicates a request with no resolved device
	// configurations.
	ErrCodeNoDevices ErrorCode = "NO_DEVICES"

	// ErrCodeEmptyRequest indicates the conditioned shot number set is
	// empty: every requested value was non-positive or the range collapsed.
	ErrCodeEmptyRequest ErrorCode = "EMPTY_REQUEST"

	// ErrCodeEmptyResult indicates an intersection read found no shot
	// number common to every requested store.
	ErrCodeEmptyResult ErrorCode = "EMPTY_RESULT"

	// ErrCodeMissingField indicates a field whose sole source column is
	// structurally absent from its store.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeDuplicateField indicates two requested devices declare the
	// same output field name.
	ErrCodeDuplicateField ErrorCode = "DUPLICATE_FIELD"

	// ErrCodeStoreRead indicates an underlying store read failed.
	ErrCodeStoreRead ErrorCode = "STORE_READ"
)

// EngineError is a structural read failure. Structural failures abort the
// whole request; there are no partial results. The fields carry enough
// context (store, device, field, request) to act on without a stack trace.
type EngineError struct {
	Code    ErrorCode
	Message string
	Device  string
	Store   string
	Field   string
	Request string
	Err     error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Device != "" {
		s += fmt.Sprintf(" (device=%s", e.Device)
		if e.Field != "" {
			s += fmt.Sprintf(", field=%s", e.Field)
		}
		if e.Store != "" {
			s += fmt.Sprintf(", store=%s", e.Store)
		}
		s += ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes the underlying cause.
func (e *EngineError) Unwrap() error { return e.Err }

// CodeOf extracts the engine error code from err, or "".
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsEmptyResult reports whether err is an empty-intersection failure.
func IsEmptyResult(err error) bool { return CodeOf(err) == ErrCodeEmptyResult }

// IsEmptyRequest reports whether err is an empty-key-set failure.
func IsEmptyRequest(err error) bool { return CodeOf(err) == ErrCodeEmptyRequest }
