package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists     = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnknownEntityType = NewDomainError("UNKNOWN_ENTITY_TYPE", "Entity type of source file could not be determined")
	ErrUnsupportedFormat = NewDomainError("UNSUPPORTED_FORMAT", "Source file format is not supported")
	ErrRunInProgress     = NewDomainError("RUN_IN_PROGRESS", "Another pipeline run holds the lock")
	ErrIntegrity         = NewDomainError("INTEGRITY_VIOLATION", "Cleaned data violates a structural constraint")
)

// AsDomainError extracts the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
