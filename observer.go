package rtcbridge

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/go-rtcbridge/channel"
)

type (
	// Loop runs tasks on the goroutine that owns a runtime. It is implemented
	// by *eventloop.Loop (github.com/joeycumines/go-eventloop).
	Loop interface {
		// Submit schedules fn, failing if the loop has shut down.
		Submit(fn func()) error
	}

	// ScriptObserver relays channel events to the listeners of a Module, see
	// [Module.Observer].
	ScriptObserver struct {
		module *Module
		loop   Loop
	}
)

var _ channel.BufferObserver = (*ScriptObserver)(nil)

// Observer returns a channel.Observer delivering to this Module's listeners,
// by submitting to loop, which must run tasks on the runtime's goroutine. It
// panics if loop is nil.
func (m *Module) Observer(loop Loop) *ScriptObserver {
	if loop == nil {
		panic("rtcbridge: loop must not be nil")
	}
	return &ScriptObserver{module: m, loop: loop}
}

func (x *ScriptObserver) submit(event string, w *channel.Wrapper, fn func()) {
	if err := x.loop.Submit(fn); err != nil {
		x.module.bridge.logger.Debug().
			Str("event", event).
			Int64("peer_connection_id", int64(w.ConnectionID())).
			Str("tag", w.Tag()).
			Err(err).
			Log("rtcbridge: event dropped")
	}
}

// StateChanged emits dataChannelStateChanged.
func (x *ScriptObserver) StateChanged(w *channel.Wrapper, state channel.State) {
	connID, tag, id := w.ConnectionID(), w.Tag(), w.ID()
	x.submit(EventStateChanged, w, func() {
		x.module.emit(EventStateChanged, func() (goja.Value, error) {
			rt := x.module.runtime
			ev := rt.NewObject()
			_ = ev.Set("peerConnectionId", connID)
			_ = ev.Set("reactTag", tag)
			_ = ev.Set("id", id)
			_ = ev.Set("state", state.String())
			return ev, nil
		})
	})
}

// MessageReceived emits dataChannelReceiveMessage, with binary data as a
// Uint8Array, text as a string.
func (x *ScriptObserver) MessageReceived(w *channel.Wrapper, msg channel.Message) {
	connID, tag := w.ConnectionID(), w.Tag()
	x.submit(EventReceiveMessage, w, func() {
		x.module.emit(EventReceiveMessage, func() (goja.Value, error) {
			rt := x.module.runtime
			ev := rt.NewObject()
			_ = ev.Set("peerConnectionId", connID)
			_ = ev.Set("reactTag", tag)
			if msg.Binary {
				data, err := ToScriptBuffer(rt, msg.Data)
				if err != nil {
					return nil, err
				}
				_ = ev.Set("type", "binary")
				_ = ev.Set("data", data)
			} else {
				_ = ev.Set("type", "text")
				_ = ev.Set("data", string(msg.Data))
			}
			return ev, nil
		})
	})
}

// DataBuffered emits dataChannelReceiveRawMessage, signalling data is
// available via dataChannelReceive.
func (x *ScriptObserver) DataBuffered(w *channel.Wrapper, size int) {
	connID, tag := w.ConnectionID(), w.Tag()
	x.submit(EventReceiveRawMessage, w, func() {
		x.module.emit(EventReceiveRawMessage, func() (goja.Value, error) {
			ev := x.module.runtime.NewObject()
			_ = ev.Set("peerConnectionId", connID)
			_ = ev.Set("reactTag", tag)
			_ = ev.Set("bufferedAmount", size)
			return ev, nil
		})
	})
}
