package gudablas

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Memory Error",
			err:      ErrOutOfMemory,
			wantType: ErrTypeMemory,
			wantOp:   "Malloc",
			wantMsg:  "out of memory",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Arg Error",
			err:      ErrInvalidSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Malloc",
			wantMsg:  "size must be positive",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Out Of Bounds Error",
			err:      ErrOutOfBounds,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Descriptor",
			wantMsg:  "traversal exceeds allocation",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Check Numerics Error",
			err:      ErrCheckNumericsFail,
			wantType: ErrTypeNumerical,
			wantOp:   "CheckNumerics",
			wantMsg:  "NaN or Inf detected",
			checkFn:  IsNumericalError,
		},
		{
			name:     "Not Implemented Error",
			err:      ErrNotSupported,
			wantType: ErrTypeNotImplemented,
			wantOp:   "Dispatch",
			wantMsg:  "operation not supported",
			checkFn:  IsNotImplementedError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gudaErr, ok := tt.err.(*GUDAError)
			if !ok {
				t.Fatalf("Expected GUDAError, got %T", tt.err)
			}
			if gudaErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", gudaErr.Type, tt.wantType)
			}
			if gudaErr.Op != tt.wantOp {
				t.Errorf("Op = %v, want %v", gudaErr.Op, tt.wantOp)
			}
			if gudaErr.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", gudaErr.Message, tt.wantMsg)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("Type check function returned false")
			}
			if !tt.checkFn(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Errorf("Type check function returned false for a wrapped error")
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := NewMemoryError("Test", "wrapped error", baseErr)

	gudaErr, ok := wrappedErr.(*GUDAError)
	if !ok {
		t.Fatal("Expected GUDAError")
	}
	if unwrapped := gudaErr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, baseErr)
	}
	if !errors.Is(wrappedErr, baseErr) {
		t.Error("errors.Is() should return true for wrapped error")
	}
}

func TestErrorIs(t *testing.T) {
	// A copy carrying context still matches its sentinel.
	withContext := &GUDAError{
		Type:    ErrTypeNumerical,
		Op:      "CheckNumerics",
		Message: "NaN or Inf detected",
		Context: "dot",
	}
	if !errors.Is(withContext, ErrCheckNumericsFail) {
		t.Error("copy with context should match ErrCheckNumericsFail")
	}
	if errors.Is(withContext, ErrOutOfMemory) {
		t.Error("numerical error matched ErrOutOfMemory")
	}

	oom := NewMemoryError("Malloc", "out of memory: 64 bytes requested", ErrOutOfMemory)
	if !errors.Is(oom, ErrOutOfMemory) {
		t.Error("errors.Is should find the wrapped sentinel")
	}
	if errors.Is(ErrOutOfMemory, errors.New("out of memory")) {
		t.Error("plain errors never match")
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeMemory, "Memory"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeExecution, "Execution"},
		{ErrTypeNumerical, "Numerical"},
		{ErrTypeDevice, "Device"},
		{ErrTypeNotImplemented, "NotImplemented"},
		{ErrorType(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSuccess},
		{"plain", errors.New("boom"), StatusInternalError},
		{"memory", NewMemoryError("Malloc", "out of memory", ErrOutOfMemory), StatusMemoryError},
		{"check numerics", fmt.Errorf("asum: %w", ErrCheckNumericsFail), StatusCheckNumericsFail},
		{"other numerical", NewNumericalError("Compute", "overflow", nil), StatusInternalError},
		{"null pointer", &GUDAError{Type: ErrTypeInvalidArg, Op: "x", Message: "m", Err: ErrNullPointer}, StatusInvalidPointer},
		{"invalid value", fmt.Errorf("trans: %w", ErrInvalidValue), StatusInvalidValue},
		{"size", NewInvalidArgError("Reduce", "negative batch count"), StatusInvalidSize},
		{"not implemented", ErrNotSupported, StatusNotImplemented},
		{"device", ErrInvalidDevice, StatusInvalidSize},
		{"execution", NewExecutionError("Kernel", "fault", nil), StatusInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if got := StatusCheckNumericsFail.String(); got != "check_numerics_fail" {
		t.Errorf("String() = %q", got)
	}
	if got := Status(-1).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
