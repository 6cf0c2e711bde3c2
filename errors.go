package gudablas

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Memory errors
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors
	ErrTypeInvalidArg
	// Execution errors
	ErrTypeExecution
	// Numerical errors
	ErrTypeNumerical
	// Device errors
	ErrTypeDevice
	// Not implemented errors
	ErrTypeNotImplemented
)

// GUDAError represents a structured error with context
type GUDAError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *GUDAError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GUDA %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("GUDA %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *GUDAError) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by type, operation and message, so a sentinel
// compares equal to a copy that carries extra context.
func (e *GUDAError) Is(target error) bool {
	t, ok := target.(*GUDAError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Op == t.Op && e.Message == t.Message
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &GUDAError{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &GUDAError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &GUDAError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewNumericalError creates a numerical error
func NewNumericalError(op string, message string, context interface{}) error {
	return &GUDAError{
		Type:    ErrTypeNumerical,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrNullPointer indicates null pointer access
	ErrNullPointer = NewInvalidArgError("Memory", "null pointer")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice indicates invalid device ID
	ErrInvalidDevice = NewInvalidArgError("SetDevice", "invalid device ID")

	// ErrOutOfBounds indicates a descriptor addressing memory past its allocation
	ErrOutOfBounds = NewInvalidArgError("Descriptor", "traversal exceeds allocation")

	// ErrTypeMismatch indicates an operand whose element type does not fit the call
	ErrTypeMismatch = NewInvalidArgError("Descriptor", "element type mismatch")

	// ErrCheckNumericsFail indicates NaN or Inf found by a check-numerics pass
	ErrCheckNumericsFail = NewNumericalError("CheckNumerics", "NaN or Inf detected", nil)

	// ErrNotSupported indicates an element type or mode without an implementation
	ErrNotSupported = &GUDAError{Type: ErrTypeNotImplemented, Op: "Dispatch", Message: "operation not supported"}
)

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	return hasType(err, ErrTypeMemory)
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	return hasType(err, ErrTypeInvalidArg)
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	return hasType(err, ErrTypeExecution)
}

// IsNumericalError checks if an error is a numerical error
func IsNumericalError(err error) bool {
	return hasType(err, ErrTypeNumerical)
}

// IsNotImplementedError checks if an error is a not-implemented error
func IsNotImplementedError(err error) bool {
	return hasType(err, ErrTypeNotImplemented)
}

func hasType(err error, t ErrorType) bool {
	var e *GUDAError
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
