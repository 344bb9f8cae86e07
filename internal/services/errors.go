// Package services provides the business logic layer between handlers and the
// analytics engine. Services orchestrate stores, cache, events and archives.
package services

import (
	"errors"
	"fmt"
)

// Error codes returned to clients
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeDatasetNotFound    = "DATASET_NOT_FOUND"
	CodeDatasetNotReady    = "DATASET_NOT_READY"
	CodeNoRecords          = "NO_RECORDS"
	CodeNoNumericValues    = "NO_NUMERIC_VALUES"
	CodeAnalyticsNotFound  = "ANALYTICS_NOT_FOUND"
	CodeReportNotFound     = "REPORT_NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// internalError wraps an unexpected failure. The cause is kept in details
// for logs, not the message.
func internalError(op string, err error) *ServiceError {
	return NewServiceErrorWithDetails(CodeInternal, fmt.Sprintf("Failed to %s", op), map[string]interface{}{
		"error": err.Error(),
	})
}

// AsServiceError extracts a ServiceError from err
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrorCode returns the code of a ServiceError, or CodeInternal for any other error
func ErrorCode(err error) string {
	if se, ok := AsServiceError(err); ok {
		return se.Code
	}
	return CodeInternal
}
