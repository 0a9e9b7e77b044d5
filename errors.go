package rtcbridge

import (
	"errors"
)

var (
	// ErrNotBinary indicates a payload that is neither an ArrayBuffer nor an
	// ArrayBufferView.
	ErrNotBinary = errors.New("rtcbridge: expected ArrayBuffer or ArrayBufferView")
	// ErrPayloadTooLarge indicates a payload exceeding WithMaxPayloadSize.
	ErrPayloadTooLarge = errors.New("rtcbridge: payload too large")
	// ErrNoUint8Array indicates the runtime lacks a usable Uint8Array.
	ErrNoUint8Array = errors.New("rtcbridge: Uint8Array unavailable")
	// ErrVersionMismatch indicates the native object reported an
	// incompatible RTCBridgeVersion.
	ErrVersionMismatch = errors.New("rtcbridge: native version mismatch")
	// ErrAlreadyInstalled is returned by Install for a runtime it has already
	// been installed into.
	ErrAlreadyInstalled = errors.New("rtcbridge: already installed")
	// ErrClosed is returned once the Bridge has been closed.
	ErrClosed = errors.New("rtcbridge: bridge closed")
)

// UnresolvedMethodError indicates the native object lacks a required method,
// or has one with the wrong signature.
type UnresolvedMethodError struct {
	Cause  error
	Method string
}

// Error implements the error interface.
func (e *UnresolvedMethodError) Error() string {
	msg := "rtcbridge: unresolved native method"
	if e.Method != "" {
		msg += " " + e.Method
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UnresolvedMethodError) Unwrap() error {
	return e.Cause
}

// MarshalingError indicates a payload could not be copied across the
// boundary.
type MarshalingError struct {
	Cause error
	// Op is "to native" or "to script".
	Op string
}

// Error implements the error interface.
func (e *MarshalingError) Error() string {
	msg := "rtcbridge: marshaling failed"
	if e.Op != "" {
		msg = "rtcbridge: marshaling " + e.Op + " failed"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *MarshalingError) Unwrap() error {
	return e.Cause
}
