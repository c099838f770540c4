package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies daemon errors for dispatch and wire mapping
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeAlreadyRunning ErrorType = "already_running"
	ErrorTypeNotRunning     ErrorType = "not_running"
	ErrorTypeSpawn          ErrorType = "spawn"
	ErrorTypeProcess        ErrorType = "process"
	ErrorTypeProtocol       ErrorType = "protocol"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeCancelled      ErrorType = "cancelled"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConflict, message, cause)
}

// Unit lifecycle errors
func NewAlreadyRunningError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeAlreadyRunning, message, cause)
}

func NewNotRunningError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotRunning, message, cause)
}

func NewSpawnError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeSpawn, message, cause)
}

func NewProcessError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcess, message, cause)
}

// Protocol and system errors
func NewProtocolError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProtocol, message, cause)
}

func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// Error checking helpers
func IsValidationError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeValidation
}

func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeNotFound
}

func IsConflictError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeConflict
}

func IsAlreadyRunningError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeAlreadyRunning
}

func IsNotRunningError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeNotRunning
}

func IsSpawnError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeSpawn
}

func IsProcessError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeProcess
}

func IsProtocolError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeProtocol
}

func IsTimeoutError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeTimeout
}

func IsIOError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeIO
}

func IsInternalError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeInternal
}

func IsCancelledError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == ErrorTypeCancelled
}

// TypeOf returns the domain error type, or ErrorTypeInternal for
// errors that did not originate from this package.
func TypeOf(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
