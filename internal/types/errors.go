package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. The prefix determines the HTTP status mapping.
const (
	// Validation (400)
	ErrCodeValidationInvalidLat      ErrorCode = "validation_invalid_latitude"
	ErrCodeValidationInvalidLon      ErrorCode = "validation_invalid_longitude"
	ErrCodeValidationInvalidTimezone ErrorCode = "validation_invalid_timezone"
	ErrCodeValidationMissingField    ErrorCode = "validation_missing_required_field"
	ErrCodeValidationAlertKind       ErrorCode = "validation_invalid_alert_kind"
	ErrCodeValidationRequest         ErrorCode = "validation_invalid_request"

	// Not Found (404)
	ErrCodeNotFoundUser ErrorCode = "not_found_user"

	// Conflict (409)
	ErrCodeConflictConcurrent ErrorCode = "conflict_concurrent_modification"

	// Forecast source (502). Transient errors are retried on the next cycle;
	// permanent ones disable the user until the location is corrected.
	ErrCodeFetchTransient      ErrorCode = "upstream_forecast_unavailable"
	ErrCodeFetchPermanent      ErrorCode = "upstream_forecast_location_unsupported"
	ErrCodeForecastIncomplete  ErrorCode = "upstream_forecast_incomplete"
	ErrCodeDispatchFailed      ErrorCode = "upstream_dispatch_failed"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Internal (500)
	ErrCodeInternalDB           ErrorCode = "internal_database_error"
	ErrCodeStoreUnavailable     ErrorCode = "internal_state_store_unavailable"
	ErrCodeInternalUnexpected   ErrorCode = "internal_unexpected_error"
	ErrCodeInternalCacheCorrupt ErrorCode = "internal_forecast_cache_corruption"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from the first AppError in err's chain.
// Returns the empty code when err is nil or carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsPermanentFetch reports whether err is a forecast fetch failure that will
// not resolve by retrying (invalid or unsupported location).
func IsPermanentFetch(err error) bool {
	return CodeOf(err) == ErrCodeFetchPermanent
}

// IsTransientFetch reports whether err is a forecast fetch failure expected to
// clear on a later cycle. Incomplete snapshots count as transient.
func IsTransientFetch(err error) bool {
	switch CodeOf(err) {
	case ErrCodeFetchTransient, ErrCodeForecastIncomplete, ErrCodeUpstreamUnavailable, ErrCodeUpstreamRateLimited:
		return true
	}
	return false
}
