package crm

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or incomplete client input. It is
// always raised before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// MissingFieldsError lists required fields absent from a record.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// InvalidValueError reports a picklist value outside its allow-list.
type InvalidValueError struct {
	Field    string
	Provided any
	Allowed  []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for field '%s'", e.Field)
}

// IsValidation reports whether err is any of the client-input error types.
func IsValidation(err error) bool {
	var (
		ve *ValidationError
		mf *MissingFieldsError
		iv *InvalidValueError
	)
	return errors.As(err, &ve) || errors.As(err, &mf) || errors.As(err, &iv)
}

// AuthenticationError means the platform rejected our credentials.
type AuthenticationError struct {
	Code    int
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("crm: authentication failed (%d): %s", e.Code, e.Message)
}

// PlatformError is a remote operation rejected with a structured payload.
// Content is the decoded response body and is passed through to callers
// unchanged.
type PlatformError struct {
	Code    int
	Content any
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("crm: platform error (%d): %v", e.Code, e.Content)
}

// CreationFailedError is a create call the platform answered with success=false.
type CreationFailedError struct {
	Object string
	Errors []any
}

func (e *CreationFailedError) Error() string {
	return fmt.Sprintf("crm: creating %s failed: %v", e.Object, e.Errors)
}

// UpdateFailedError is an update call the platform answered with success=false.
type UpdateFailedError struct {
	Object string
	ID     string
	Errors []any
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("crm: updating %s %s failed: %v", e.Object, e.ID, e.Errors)
}

// ReconciliationError describes a failed post-creation step. It is logged
// and never returned to HTTP callers.
type ReconciliationError struct {
	Stage string
	Err   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("crm: reconciliation %s failed: %v", e.Stage, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// UnexpectedError wraps failures outside the taxonomy. Its details are
// never exposed to callers.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("crm: unexpected error: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// NotFoundError means a lookup matched no records.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NotVerifiedError means identity verification found no matching record.
type NotVerifiedError struct {
	Message string
}

func (e *NotVerifiedError) Error() string {
	return e.Message
}
