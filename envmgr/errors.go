package envmgr

import (
	"errors"
	"strconv"
)

// ErrClosed is returned (wrapped in an [AttachError]) once the [Manager] has
// been closed.
var ErrClosed = errors.New("envmgr: manager closed")

// AttachError indicates the calling goroutine could not be attached to the
// managed runtime. The environment must not be used.
type AttachError struct {
	Cause  error
	Thread ThreadID
}

// Error implements the error interface.
func (e *AttachError) Error() string {
	msg := "envmgr: failed to attach thread " + strconv.FormatUint(uint64(e.Thread), 10)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AttachError) Unwrap() error {
	return e.Cause
}
