package sparse

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntime matches every failed native sparse runtime call.
	ErrRuntime = errors.New("sparse runtime error")

	// ErrScratchTooSmall indicates a sort scratch buffer below the queried size.
	ErrScratchTooSmall = errors.New("sort scratch buffer smaller than queried size")
)

// Error is returned when a native call reports anything but StatusSuccess.
type Error struct {
	// Call is the literal call expression, for debugging.
	Call string

	// Status is the raw code the runtime returned.
	Status Status

	// Err optionally narrows the failure (e.g. ErrScratchTooSmall).
	Err error
}

// Name returns the decoded status name.
func (e *Error) Name() string { return e.Status.String() }

func (e *Error) Error() string {
	msg := fmt.Sprintf("cuSparse error encountered at: call='%s', Reason=%d:%s", e.Call, int32(e.Status), e.Status)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the narrowing cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRuntime) match any *Error.
func (e *Error) Is(target error) bool { return target == ErrRuntime }

func newError(call string, st Status, cause error) *Error {
	return &Error{Call: call, Status: st, Err: cause}
}

// IsRuntimeError reports whether err wraps an *Error.
func IsRuntimeError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// StatusOf extracts the status from a wrapped *Error.
func StatusOf(err error) (Status, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Status, true
	}
	return StatusSuccess, false
}

// IsStatus reports whether err carries status st.
func IsStatus(err error, st Status) bool {
	got, ok := StatusOf(err)
	return ok && got == st
}
