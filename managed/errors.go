package managed

import (
	"errors"
	"reflect"
)

var (
	// ErrVMClosed is returned by attach once the VM has been closed.
	ErrVMClosed = errors.New("managed: vm closed")
	// ErrThreadLimit is returned by attach once the configured maximum number
	// of attached threads is reached.
	ErrThreadLimit = errors.New("managed: attached thread limit reached")
	// ErrNotAttached is returned when detaching a thread that isn't attached.
	ErrNotAttached = errors.New("managed: thread not attached")
	// ErrStaleEnv indicates use of an Env after its thread was detached.
	ErrStaleEnv = errors.New("managed: env is no longer attached")
	// ErrWrongThread indicates use of an Env from a goroutine other than the
	// one it was attached for.
	ErrWrongThread = errors.New("managed: env used from a foreign thread")
)

// MethodError indicates a method could not be resolved, either because it
// does not exist (Got is nil) or because its signature differs.
type MethodError struct {
	Want reflect.Type
	Got  reflect.Type
	Name string
}

// Error implements the error interface.
func (e *MethodError) Error() string {
	if e.Got == nil {
		return "managed: no such method " + e.Name + " " + e.Want.String()
	}
	return "managed: method " + e.Name + " has signature " + e.Got.String() + ", want " + e.Want.String()
}
