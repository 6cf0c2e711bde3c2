package gudablas

import "errors"

// Status is the public result code of a library routine.
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidHandle
	StatusNotImplemented
	StatusInvalidPointer
	StatusInvalidSize
	StatusMemoryError
	StatusInternalError
	StatusPerfDegraded
	StatusSizeQueryMismatch
	StatusSizeIncreased
	StatusSizeUnchanged
	StatusInvalidValue
	// StatusContinue is returned by argument checks that found no reason
	// for an early return.
	StatusContinue
	StatusCheckNumericsFail
)

var statusNames = [...]string{
	StatusSuccess:           "success",
	StatusInvalidHandle:     "invalid_handle",
	StatusNotImplemented:    "not_implemented",
	StatusInvalidPointer:    "invalid_pointer",
	StatusInvalidSize:       "invalid_size",
	StatusMemoryError:       "memory_error",
	StatusInternalError:     "internal_error",
	StatusPerfDegraded:      "perf_degraded",
	StatusSizeQueryMismatch: "size_query_mismatch",
	StatusSizeIncreased:     "size_increased",
	StatusSizeUnchanged:     "size_unchanged",
	StatusInvalidValue:      "invalid_value",
	StatusContinue:          "continue",
	StatusCheckNumericsFail: "check_numerics_fail",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// StatusOf maps an error returned by the library onto a Status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *GUDAError
	if !errors.As(err, &e) {
		return StatusInternalError
	}
	switch e.Type {
	case ErrTypeMemory:
		return StatusMemoryError
	case ErrTypeNumerical:
		if errors.Is(err, ErrCheckNumericsFail) {
			return StatusCheckNumericsFail
		}
		return StatusInternalError
	case ErrTypeInvalidArg:
		if errors.Is(err, ErrNullPointer) {
			return StatusInvalidPointer
		}
		if errors.Is(err, ErrInvalidValue) {
			return StatusInvalidValue
		}
		return StatusInvalidSize
	case ErrTypeNotImplemented:
		return StatusNotImplemented
	case ErrTypeDevice:
		return StatusInvalidHandle
	default:
		return StatusInternalError
	}
}

// ErrInvalidValue indicates an enumerated argument outside its domain.
var ErrInvalidValue = NewInvalidArgError("Arguments", "invalid value")
