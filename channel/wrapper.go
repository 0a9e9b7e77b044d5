package channel

import (
	"sync"
	"weak"
)

type (
	// Wrapper tracks one data channel, see the package documentation.
	Wrapper struct {
		dc       DataChannel
		sub      weak.Pointer[Subscription]
		tag      string
		label    string
		buf      []byte
		mu       sync.Mutex
		id       int
		connID   int32
		raw      bool
		torndown bool
	}

	// WrapperOption configures a Wrapper.
	WrapperOption func(w *Wrapper)
)

// WithRawDelivery selects raw delivery, forwarding each binary message to the
// observer rather than buffering it.
func WithRawDelivery(raw bool) WrapperOption {
	return func(w *Wrapper) {
		w.raw = raw
	}
}

// NewWrapper wraps dc, which belongs to the peer connection connID, and is
// identified by tag. It panics if dc is nil.
func NewWrapper(connID int32, tag string, dc DataChannel, opts ...WrapperOption) *Wrapper {
	if dc == nil {
		panic("channel: data channel must not be nil")
	}
	w := &Wrapper{
		dc:     dc,
		connID: connID,
		tag:    tag,
		id:     dc.ID(),
		label:  dc.Label(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// ConnectionID returns the peer connection id the Wrapper was created with.
func (w *Wrapper) ConnectionID() int32 { return w.connID }

// Tag returns the tag the Wrapper was created with.
func (w *Wrapper) Tag() string { return w.tag }

// Label returns the channel label, as of construction.
func (w *Wrapper) Label() string { return w.label }

// Raw reports whether binary messages are delivered as they arrive, rather
// than buffered.
func (w *Wrapper) Raw() bool { return w.raw }

// ID returns the last known channel id, or -1.
func (w *Wrapper) ID() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id
}

// Channel returns the wrapped channel, or nil after teardown.
func (w *Wrapper) Channel() DataChannel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dc
}

// Closed reports whether the Wrapper has been torn down.
func (w *Wrapper) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.torndown
}

// Subscribe replaces the observer. Notifications stop once the returned
// Subscription is closed or garbage collected.
func (w *Wrapper) Subscribe(observer Observer) *Subscription {
	s := &Subscription{observer: observer}
	w.mu.Lock()
	if !w.torndown {
		w.sub = weak.Make(s)
	}
	w.mu.Unlock()
	return s
}

func (w *Wrapper) observerLocked() Observer {
	return w.sub.Value().active()
}

// HandleMessage handles an inbound message event. Text messages, and every
// message in raw delivery mode, are forwarded to the observer. Binary
// messages are otherwise appended to the accumulation buffer.
func (w *Wrapper) HandleMessage(msg Message) {
	w.mu.Lock()
	if w.torndown {
		w.mu.Unlock()
		return
	}
	observer := w.observerLocked()

	if w.raw || !msg.Binary {
		w.mu.Unlock()
		if observer != nil {
			observer.MessageReceived(w, Message{Data: clone(msg.Data), Binary: msg.Binary})
		}
		return
	}

	w.buf = append(w.buf, msg.Data...)
	size := len(w.buf)
	w.mu.Unlock()

	if observer, ok := observer.(BufferObserver); ok {
		observer.DataBuffered(w, size)
	}
}

// HandleStateChange handles a state change event, reading the new state from
// the channel. Reaching StateClosed tears the Wrapper down, after notifying.
func (w *Wrapper) HandleStateChange() {
	w.mu.Lock()
	dc := w.dc
	w.mu.Unlock()
	if dc == nil {
		return
	}
	state := dc.ReadyState()
	id := dc.ID()

	w.mu.Lock()
	if w.torndown {
		w.mu.Unlock()
		return
	}
	if id >= 0 {
		w.id = id
	}
	observer := w.observerLocked()
	if state == StateClosed {
		w.teardownLocked()
	}
	w.mu.Unlock()

	if observer != nil {
		observer.StateChanged(w, state)
	}
}

// Buffered returns the size of the accumulation buffer.
func (w *Wrapper) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

// Bytes returns a copy of the accumulation buffer.
func (w *Wrapper) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.buf)
}

// Drain removes and returns the accumulated bytes, nil if there are none.
func (w *Wrapper) Drain() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.buf
	w.buf = nil
	return b
}

// Send sends data on the channel.
func (w *Wrapper) Send(data []byte) error {
	dc := w.Channel()
	if dc == nil {
		return ErrClosed
	}
	return dc.Send(data)
}

// Close asks the channel to close. The Wrapper is torn down once the channel
// reports StateClosed.
func (w *Wrapper) Close() error {
	dc := w.Channel()
	if dc == nil {
		return nil
	}
	return dc.Close()
}

// Teardown releases the buffer, channel and observer without notifying, as
// when the owning connection goes away.
func (w *Wrapper) Teardown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked()
}

func (w *Wrapper) teardownLocked() {
	w.torndown = true
	w.buf = nil
	w.dc = nil
	w.sub = weak.Pointer[Subscription]{}
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
