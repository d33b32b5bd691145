package dto

import (
	"net/http"
	"strings"
)

// Error codes. Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists      = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeRequestTooLarge    = "ERR_REQUEST_TOO_LARGE"
	ErrCodeTimeout            = "ERR_TIMEOUT"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// Pipeline error codes, one per domain sentinel
const (
	ErrCodeRunInProgress      = "ERR_RUN_IN_PROGRESS"
	ErrCodeUnknownEntityType  = "ERR_UNKNOWN_ENTITY_TYPE"
	ErrCodeUnsupportedFormat  = "ERR_UNSUPPORTED_FORMAT"
	ErrCodeIntegrityViolation = "ERR_INTEGRITY_VIOLATION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeAlreadyExists:      http.StatusConflict,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeRunInProgress:      http.StatusConflict,
	ErrCodeUnknownEntityType:  http.StatusUnprocessableEntity,
	ErrCodeUnsupportedFormat:  http.StatusUnsupportedMediaType,
	ErrCodeIntegrityViolation: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for code, 500 when unmapped
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a domain code like "NOT_FOUND" into its API
// form "ERR_NOT_FOUND". Codes already in API form pass through.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeInternal
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
