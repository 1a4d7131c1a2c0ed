// Package errors provides structured error handling for the conductor. It
// defines error types that map onto JSON-RPC error codes and carry enough
// context for both logging and programmatic handling.
package errors

import (
	"fmt"
)

// Category classifies an error for handling decisions.
type Category string

const (
	CategoryProtocol  Category = "protocol"  // peer violated the protocol
	CategoryTransport Category = "transport" // connection-level failure
	CategoryHandshake Category = "handshake" // initialization failure
	CategoryRouting   Category = "routing"   // unresolvable target
	CategoryBridge    Category = "bridge"    // MCP bridge failure
	CategoryInternal  Category = "internal"  // everything else
)

// ConductorError is the error type produced by this module.
type ConductorError interface {
	error

	// Code returns the JSON-RPC-style error code.
	Code() int

	// Message returns the human-readable error message.
	Message() string

	// Details returns additional technical detail, if any.
	Details() string

	// Category returns the error category.
	Category() Category

	// WithDetail returns a copy of the error with extra detail appended.
	WithDetail(detail string) ConductorError

	// Unwrap returns the underlying cause, if any.
	Unwrap() error
}

type baseError struct {
	code     int
	message  string
	details  string
	category Category
	cause    error
}

func (e *baseError) Error() string {
	switch {
	case e.details != "" && e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.message, e.details, e.cause)
	case e.details != "":
		return fmt.Sprintf("%s: %s", e.message, e.details)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	default:
		return e.message
	}
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Details() string    { return e.details }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithDetail(detail string) ConductorError {
	clone := *e
	if clone.details != "" {
		clone.details = fmt.Sprintf("%s; %s", clone.details, detail)
	} else {
		clone.details = detail
	}
	return &clone
}

// New creates a new ConductorError.
func New(code int, message string, category Category) ConductorError {
	return &baseError{code: code, message: message, category: category}
}

// Newf creates a new ConductorError with a formatted message.
func Newf(code int, category Category, format string, args ...interface{}) ConductorError {
	return &baseError{code: code, message: fmt.Sprintf(format, args...), category: category}
}

// Wrap wraps an existing error as a ConductorError.
func Wrap(err error, code int, message string, category Category) ConductorError {
	return &baseError{code: code, message: message, category: category, cause: err}
}

// As extracts a ConductorError from err, if it is one.
func As(err error) (ConductorError, bool) {
	if err == nil {
		return nil, false
	}
	ce, ok := err.(ConductorError)
	return ce, ok
}

// IsCode reports whether err is a ConductorError with the given code.
func IsCode(err error, code int) bool {
	if ce, ok := As(err); ok {
		return ce.Code() == code
	}
	return false
}

// IsCategory reports whether err is a ConductorError of the given category.
func IsCategory(err error, category Category) bool {
	if ce, ok := As(err); ok {
		return ce.Category() == category
	}
	return false
}
