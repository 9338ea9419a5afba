// Package errors defines the application error taxonomy.
package errors

import "net/http"

// APIError represents a structured API error with an HTTP status code.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Predefined web-tier errors
var (
	ErrBadRequest      = &APIError{HTTPStatus: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "Invalid request parameters"}
	ErrInvalidJSON     = &APIError{HTTPStatus: http.StatusBadRequest, Code: "INVALID_JSON", Message: "Invalid JSON format"}
	ErrValidation      = &APIError{HTTPStatus: http.StatusBadRequest, Code: "VALIDATION_FAILED", Message: "Validation failed"}
	ErrDuplicate       = &APIError{HTTPStatus: http.StatusConflict, Code: "DUPLICATE_RESOURCE", Message: "Resource already exists"}
	ErrNotFound        = &APIError{HTTPStatus: http.StatusNotFound, Code: "NOT_FOUND", Message: "Resource not found"}
	ErrUnauthorized    = &APIError{HTTPStatus: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication required"}
	ErrForbidden       = &APIError{HTTPStatus: http.StatusForbidden, Code: "FORBIDDEN", Message: "Access denied"}
	ErrInternalServer  = &APIError{HTTPStatus: http.StatusInternalServerError, Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error"}
	ErrDatabase        = &APIError{HTTPStatus: http.StatusInternalServerError, Code: "DATABASE_ERROR", Message: "Database operation failed"}
	ErrTooManyRequests = &APIError{HTTPStatus: http.StatusTooManyRequests, Code: "TOO_MANY_REQUESTS", Message: "Too many concurrent requests"}
)

// Verification engine errors. These form the stable contract between the
// attendance core and its callers.
var (
	// ErrSessionNotFound is returned when an operation references a work
	// session that does not exist.
	ErrSessionNotFound = &APIError{HTTPStatus: http.StatusNotFound, Code: "SESSION_NOT_FOUND", Message: "Work session not found"}

	// ErrAlreadyCheckedIn is returned when a worker attempts a second
	// check-in for the same session. Re-check-in fails rather than updating
	// in place so the original check-in remains auditable.
	ErrAlreadyCheckedIn = &APIError{HTTPStatus: http.StatusConflict, Code: "ALREADY_CHECKED_IN", Message: "Worker already checked in for this session"}

	// ErrNotCheckedIn is returned on check-out when no open attendance
	// record exists for the (worker, session) pair.
	ErrNotCheckedIn = &APIError{HTTPStatus: http.StatusConflict, Code: "NOT_CHECKED_IN", Message: "Worker has not checked in for this session"}

	// ErrLocationUnavailable signals a missing or stale device location. It
	// is a skip signal, not a hard failure: scheduled verifications degrade
	// to a location-update request instead of recording an outcome.
	ErrLocationUnavailable = &APIError{HTTPStatus: http.StatusConflict, Code: "LOCATION_UNAVAILABLE", Message: "No recent location available for worker"}

	// ErrStorageUnavailable is surfaced when the persistence collaborator
	// cannot be reached.
	ErrStorageUnavailable = &APIError{HTTPStatus: http.StatusServiceUnavailable, Code: "STORAGE_UNAVAILABLE", Message: "Storage backend unavailable"}

	// ErrPermissionDenied mirrors the external location channel's
	// device-permission failure. The core never generates it itself.
	ErrPermissionDenied = &APIError{HTTPStatus: http.StatusForbidden, Code: "PERMISSION_DENIED", Message: "Device location permission denied"}

	// ErrSchedulingActive is returned when StartScheduling is called for a
	// session that already has an armed schedule. Re-arming is an explicit
	// error rather than a silent no-op so duplicated timers cannot pile up.
	ErrSchedulingActive = &APIError{HTTPStatus: http.StatusConflict, Code: "SCHEDULING_ACTIVE", Message: "Verification schedule already active for this session"}

	// ErrRecordFinalized is returned when a mutation targets an attendance
	// record that has already been finalized at check-out.
	ErrRecordFinalized = &APIError{HTTPStatus: http.StatusConflict, Code: "RECORD_FINALIZED", Message: "Attendance record is finalized"}
)

// NewAPIError creates a copy of a predefined error with a custom message.
func NewAPIError(base *APIError, message string) *APIError {
	return &APIError{
		HTTPStatus: base.HTTPStatus,
		Code:       base.Code,
		Message:    message,
	}
}

// NewValidationError creates a validation error with a custom message.
func NewValidationError(message string) *APIError {
	return NewAPIError(ErrValidation, message)
}

// NewNotFoundError creates a not-found error with a custom message.
func NewNotFoundError(message string) *APIError {
	return NewAPIError(ErrNotFound, message)
}
