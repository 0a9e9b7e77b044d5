package channel

import (
	"sync/atomic"
)

type (
	// Observer receives Wrapper notifications.
	Observer interface {
		StateChanged(w *Wrapper, state State)
		// MessageReceived is only called in raw delivery mode. The message
		// data is owned by the receiver.
		MessageReceived(w *Wrapper, msg Message)
	}

	// BufferObserver may be implemented by an Observer, to be told the size
	// of the accumulation buffer after each append.
	BufferObserver interface {
		Observer
		DataBuffered(w *Wrapper, size int)
	}

	// Subscription binds an Observer to a Wrapper. The Wrapper holds it
	// weakly: callers must retain it for as long as they want notifications.
	Subscription struct {
		observer Observer
		closed   atomic.Bool
	}

	// ObserverFuncs implements BufferObserver using optional callbacks.
	ObserverFuncs struct {
		OnStateChanged    func(w *Wrapper, state State)
		OnMessageReceived func(w *Wrapper, msg Message)
		OnDataBuffered    func(w *Wrapper, size int)
	}
)

var _ BufferObserver = ObserverFuncs{}

// Close stops further notifications.
func (x *Subscription) Close() {
	x.closed.Store(true)
}

func (x *Subscription) active() Observer {
	if x == nil || x.closed.Load() {
		return nil
	}
	return x.observer
}

// StateChanged calls OnStateChanged, if set.
func (x ObserverFuncs) StateChanged(w *Wrapper, state State) {
	if x.OnStateChanged != nil {
		x.OnStateChanged(w, state)
	}
}

// MessageReceived calls OnMessageReceived, if set.
func (x ObserverFuncs) MessageReceived(w *Wrapper, msg Message) {
	if x.OnMessageReceived != nil {
		x.OnMessageReceived(w, msg)
	}
}

// DataBuffered calls OnDataBuffered, if set.
func (x ObserverFuncs) DataBuffered(w *Wrapper, size int) {
	if x.OnDataBuffered != nil {
		x.OnDataBuffered(w, size)
	}
}
