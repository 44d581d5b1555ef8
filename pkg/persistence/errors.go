// Package persistence provides standardized error types for blob store operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrKeyNotFound indicates no value is stored under the given key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey indicates a malformed key (empty, or escaping the store
	// namespace).
	ErrInvalidKey = errors.New("invalid key")
)

// StoreError wraps blob store errors with operation and key context.
type StoreError struct {
	Op  string // Operation being performed (e.g. "Save", "Load", "Delete")
	Key string // Key being operated on
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// IsKeyNotFound checks if an error indicates a missing key.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsInvalidKey checks if an error indicates a malformed key.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
