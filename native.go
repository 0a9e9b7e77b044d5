package rtcbridge

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-rtcbridge/managed"
)

// NativeVersion is the native interface version this package implements.
const NativeVersion = 1

const (
	methodSend    = "DataChannelSend"
	methodReceive = "DataChannelReceive"
	methodClose   = "DataChannelClose"
	methodVersion = "RTCBridgeVersion"
)

type (
	// Versioned may be implemented by native objects, to declare the version
	// of the native interface they implement. It must equal NativeVersion.
	Versioned interface {
		RTCBridgeVersion() int
	}

	sendFunc    = func(connID int32, tag string, data []byte) error
	receiveFunc = func(connID int32, tag string) []byte
	closeFunc   = func(connID int32, tag string) error

	nativeMethods struct {
		send    *managed.Method[sendFunc]
		receive *managed.Method[receiveFunc]
		// close is nil if unsupported
		close *managed.Method[closeFunc]
	}
)

// resolveNative resolves every method of native up front.
func resolveNative(native any) (*nativeMethods, error) {
	if v, ok := native.(Versioned); ok {
		if got := v.RTCBridgeVersion(); got != NativeVersion {
			return nil, &UnresolvedMethodError{
				Method: methodVersion,
				Cause:  fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, got, NativeVersion),
			}
		}
	}

	var methods nativeMethods
	var err error

	methods.send, err = managed.Resolve[sendFunc](native, methodSend)
	if err != nil {
		void, voidErr := managed.Resolve[func(int32, string, []byte)](native, methodSend)
		if voidErr != nil {
			return nil, &UnresolvedMethodError{Method: methodSend, Cause: err}
		}
		methods.send = managed.Map(void, func(fn func(int32, string, []byte)) sendFunc {
			return func(connID int32, tag string, data []byte) error {
				fn(connID, tag, data)
				return nil
			}
		})
	}

	methods.receive, err = managed.Resolve[receiveFunc](native, methodReceive)
	if err != nil {
		return nil, &UnresolvedMethodError{Method: methodReceive, Cause: err}
	}

	methods.close, err = managed.Resolve[closeFunc](native, methodClose)
	if err != nil {
		var methodErr *managed.MethodError
		if !errors.As(err, &methodErr) || methodErr.Got != nil {
			return nil, &UnresolvedMethodError{Method: methodClose, Cause: err}
		}
		methods.close = nil
	}

	return &methods, nil
}
