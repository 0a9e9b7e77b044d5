package rtcbridge

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-rtcbridge/managed"
)

// Event names, as passed to addListener.
const (
	EventStateChanged      = "dataChannelStateChanged"
	EventReceiveMessage    = "dataChannelReceiveMessage"
	EventReceiveRawMessage = "dataChannelReceiveRawMessage"
)

type (
	// Module is the per-runtime state of a [Bridge], see [Bridge.Install].
	Module struct {
		bridge    *Bridge
		runtime   *goja.Runtime
		listeners map[string][]*listener
		installed bool
	}

	listener struct {
		fn      goja.Callable
		removed bool
	}
)

func newModule(bridge *Bridge, runtime *goja.Runtime) *Module {
	return &Module{
		bridge:    bridge,
		runtime:   runtime,
		listeners: make(map[string][]*listener),
	}
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime {
	return m.runtime
}

func (m *Module) setupExports(exports *goja.Object) {
	_ = exports.Set("dataChannelSend", m.jsDataChannelSend)
	_ = exports.Set("dataChannelReceive", m.jsDataChannelReceive)
	if m.bridge.native.close != nil {
		_ = exports.Set("dataChannelClose", m.jsDataChannelClose)
	}
	_ = exports.Set("addListener", m.jsAddListener)
}

// env returns the environment of the calling goroutine, or throws.
func (m *Module) env() *managed.Env {
	env, err := m.bridge.envs.Env()
	if err != nil {
		panic(m.runtime.NewGoError(err))
	}
	return env
}

func (m *Module) argConnectionID(v goja.Value) int32 {
	return int32(v.ToInteger())
}

func (m *Module) argTag(v goja.Value) string {
	tag, ok := v.Export().(string)
	if !ok {
		panic(m.runtime.NewTypeError("rtcbridge: tag must be a string"))
	}
	return tag
}

func (m *Module) throw(err error) {
	if errors.Is(err, ErrNotBinary) {
		panic(m.runtime.NewTypeError(err.Error()))
	}
	panic(m.runtime.NewGoError(err))
}

// jsDataChannelSend implements dataChannelSend(connectionId, tag, payload).
func (m *Module) jsDataChannelSend(call goja.FunctionCall) goja.Value {
	env := m.env()
	send, err := m.bridge.native.send.Bind(env)
	if err != nil {
		m.throw(err)
	}

	connID := m.argConnectionID(call.Argument(0))
	tag := m.argTag(call.Argument(1))
	data, err := toNativeBytes(m.runtime, call.Argument(2), m.bridge.maxPayloadSize)
	if err != nil {
		m.throw(err)
	}

	if err := send(connID, tag, data); err != nil {
		m.bridge.logSendError(connID, tag, err)
	}
	return m.runtime.ToValue(true)
}

// jsDataChannelReceive implements dataChannelReceive(connectionId, tag).
func (m *Module) jsDataChannelReceive(call goja.FunctionCall) goja.Value {
	env := m.env()
	receive, err := m.bridge.native.receive.Bind(env)
	if err != nil {
		m.throw(err)
	}

	connID := m.argConnectionID(call.Argument(0))
	tag := m.argTag(call.Argument(1))

	buf, err := ToScriptBuffer(m.runtime, receive(connID, tag))
	if err != nil {
		m.throw(err)
	}
	return buf
}

// jsDataChannelClose implements dataChannelClose(connectionId, tag).
func (m *Module) jsDataChannelClose(call goja.FunctionCall) goja.Value {
	env := m.env()
	closeChannel, err := m.bridge.native.close.Bind(env)
	if err != nil {
		m.throw(err)
	}

	connID := m.argConnectionID(call.Argument(0))
	tag := m.argTag(call.Argument(1))

	if err := closeChannel(connID, tag); err != nil {
		m.throw(err)
	}
	return goja.Undefined()
}

// jsAddListener implements addListener(event, fn), returning {remove()}.
func (m *Module) jsAddListener(call goja.FunctionCall) goja.Value {
	event := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(m.runtime.NewTypeError("rtcbridge: listener must be a function"))
	}

	l := &listener{fn: fn}
	m.listeners[event] = append(m.listeners[event], l)

	subscription := m.runtime.NewObject()
	_ = subscription.Set("remove", func(goja.FunctionCall) goja.Value {
		m.removeListener(event, l)
		return goja.Undefined()
	})
	return subscription
}

func (m *Module) removeListener(event string, l *listener) {
	if l.removed {
		return
	}
	l.removed = true
	listeners := m.listeners[event]
	for i, v := range listeners {
		if v == l {
			m.listeners[event] = append(listeners[:i:i], listeners[i+1:]...)
			break
		}
	}
	if len(m.listeners[event]) == 0 {
		delete(m.listeners, event)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (m *Module) ListenerCount(event string) int {
	return len(m.listeners[event])
}

// emit calls every listener of event with the payload built by newPayload,
// which is only called if there are listeners. Listeners that throw are
// logged.
func (m *Module) emit(event string, newPayload func() (goja.Value, error)) {
	listeners := m.listeners[event]
	if len(listeners) == 0 {
		return
	}
	payload, err := newPayload()
	if err != nil {
		m.bridge.logger.Err().
			Str("event", event).
			Err(err).
			Log("rtcbridge: failed to marshal event")
		return
	}
	for _, l := range append([]*listener(nil), listeners...) {
		if l.removed {
			continue
		}
		if _, err := l.fn(goja.Undefined(), payload); err != nil {
			m.bridge.logger.Warning().
				Str("event", event).
				Err(err).
				Log("rtcbridge: listener failed")
		}
	}
}
