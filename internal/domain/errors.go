package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAuthRequired indicates the session could not be kept alive and the
	// caller must log in again.
	ErrAuthRequired = errors.New("authentication required")
)

// Error categories for operations against the backend. Each failed operation
// maps to exactly one category so callers can tell a retryable network fault
// from a response the client cannot interpret.
const (
	CategoryNetwork    = "network"
	CategoryAuth       = "auth_required"
	CategoryValidation = "validation"
	CategoryBackend    = "backend_rejected"
	CategoryMalformed  = "malformed_response"
)

// OpError is a categorised failure of a client operation.
type OpError struct {
	Category string
	Message  string
	Err      error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError builds an OpError wrapping an optional cause.
func NewOpError(category, message string, err error) *OpError {
	return &OpError{Category: category, Message: message, Err: err}
}

// CategoryOf extracts the category from err, or empty if err is not an OpError.
func CategoryOf(err error) string {
	var op *OpError
	if errors.As(err, &op) {
		return op.Category
	}
	return ""
}
