package workflows

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// ErrWorkflowNotFound is returned when the referenced workflow is not in
	// the store.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrTitleRequired is returned when a save or rename carries an empty
	// title.
	ErrTitleRequired = errors.New("workflow title is required")

	// ErrInvalidSortField is returned for sort fields outside the allowlist.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInvalidSortOrder is returned for sort orders other than asc/desc.
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// ServiceError wraps workflow service failures with operation context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder)
}

// IsNotFound checks if an error means the workflow does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
