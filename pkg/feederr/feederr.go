// Package feederr defines the error taxonomy for the bank-feed engine.
//
// Every error that crosses a package boundary is classified into one of a
// small set of categories so that callers can decide how to react without
// string matching:
//
//   - Validation: malformed input, user-correctable, never retried
//   - NotFound: missing or foreign-owned entity
//   - Conflict: invalid match-state transition or lost optimistic race
//   - Lookup: a directory collaborator (customers/vendors/invoices/bills)
//     could not be read
//   - Persistence: a write to the transaction store failed
package feederr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category classifies an error for propagation policy decisions.
type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryNotFound    Category = "not_found"
	CategoryConflict    Category = "conflict"
	CategoryLookup      Category = "lookup"
	CategoryPersistence Category = "persistence"
	CategoryInternal    Category = "internal"
)

// Error carries a category, a human-readable message and optional
// field-level context. The wrapped cause keeps its pkg/errors stack trace.
type Error struct {
	Category Category               `json:"category"`
	Message  string                 `json:"message"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
	Cause    error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField attaches field-level detail, used for validation errors.
func (e *Error) WithField(key string, value interface{}) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New creates an error in the given category.
func New(category Category, format string, args ...interface{}) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap classifies an existing error, preserving it as the cause.
// Returns nil when err is nil.
func Wrap(err error, category Category, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Cause:    errors.WithStack(err),
	}
}

// Validation creates a validation error.
func Validation(format string, args ...interface{}) *Error {
	return New(CategoryValidation, format, args...)
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *Error {
	return New(CategoryNotFound, "%s not found", resource)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return New(CategoryConflict, format, args...)
}

func categoryOf(err error) Category {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Category
	}
	return CategoryInternal
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return categoryOf(err) == CategoryValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return categoryOf(err) == CategoryNotFound }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return categoryOf(err) == CategoryConflict }

// IsLookup reports whether err is a directory lookup failure.
func IsLookup(err error) bool { return categoryOf(err) == CategoryLookup }

// IsPersistence reports whether err is a store write failure.
func IsPersistence(err error) bool { return categoryOf(err) == CategoryPersistence }
