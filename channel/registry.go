package channel

import (
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
)

type (
	// Key identifies a data channel within the process.
	Key struct {
		Tag    string
		ConnID int32
	}

	// Registry owns the wrappers of every open data channel, implementing the
	// native methods bridged to scripts.
	Registry struct {
		entries  map[Key]*entry
		observer Observer
		logger   *logiface.Logger[logiface.Event]
		mu       sync.RWMutex
		closed   bool
	}

	// RegistryOption configures a Registry.
	RegistryOption func(r *Registry)

	entry struct {
		wrapper *Wrapper
		// the wrapper only holds it weakly
		sub *Subscription
	}

	// registryObserver is what each wrapper observes, forwarding to the
	// registry's current observer.
	registryObserver struct {
		r   *Registry
		key Key
	}
)

var _ BufferObserver = (*registryObserver)(nil)

// WithObserver sets the observer notified for every registered wrapper.
func WithObserver(observer Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{entries: make(map[Key]*entry)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// SetObserver replaces the observer, affecting all wrappers.
func (r *Registry) SetObserver(observer Observer) {
	r.mu.Lock()
	r.observer = observer
	r.mu.Unlock()
}

// Add wraps and registers dc, which must then route its events to the
// returned Wrapper.
func (r *Registry) Add(connID int32, tag string, dc DataChannel, opts ...WrapperOption) (*Wrapper, error) {
	key := Key{ConnID: connID, Tag: tag}
	w := NewWrapper(connID, tag, dc, opts...)
	sub := w.Subscribe(&registryObserver{r: r, key: key})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if _, ok := r.entries[key]; ok {
		return nil, fmt.Errorf("%w: connection %d tag %q", ErrDuplicateChannel, connID, tag)
	}
	r.entries[key] = &entry{wrapper: w, sub: sub}

	r.logger.Debug().
		Int64("peer_connection_id", int64(connID)).
		Str("tag", tag).
		Bool("raw", w.raw).
		Log("channel: registered")

	return w, nil
}

// Get returns the wrapper for connID and tag.
func (r *Registry) Get(connID int32, tag string) (*Wrapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[Key{ConnID: connID, Tag: tag}]; ok {
		return e.wrapper, true
	}
	return nil, false
}

// Len returns the number of registered wrappers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Remove unregisters and tears down the wrapper for connID and tag, without
// closing the channel.
func (r *Registry) Remove(connID int32, tag string) bool {
	e := r.remove(Key{ConnID: connID, Tag: tag}, nil)
	if e == nil {
		return false
	}
	e.wrapper.Teardown()
	return true
}

// remove deletes key, if it maps to w (or w is nil).
func (r *Registry) remove(key Key, w *Wrapper) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || (w != nil && e.wrapper != w) {
		return nil
	}
	delete(r.entries, key)
	e.sub.Close()
	r.logger.Debug().
		Int64("peer_connection_id", int64(key.ConnID)).
		Str("tag", key.Tag).
		Log("channel: unregistered")
	return e
}

// CloseConnection closes and tears down every channel of connID, returning
// the number of channels affected.
func (r *Registry) CloseConnection(connID int32) int {
	r.mu.Lock()
	var entries []*entry
	for key, e := range r.entries {
		if key.ConnID == connID {
			entries = append(entries, e)
			delete(r.entries, key)
			e.sub.Close()
		}
	}
	r.mu.Unlock()

	for _, e := range entries {
		closeWrapper(r.logger, e.wrapper)
	}
	return len(entries)
}

// Close closes every channel, and refuses further registration.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[Key]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.sub.Close()
		closeWrapper(r.logger, e.wrapper)
	}
	return nil
}

func closeWrapper(logger *logiface.Logger[logiface.Event], w *Wrapper) {
	if err := w.Close(); err != nil {
		logger.Warning().
			Int64("peer_connection_id", int64(w.connID)).
			Str("tag", w.tag).
			Err(err).
			Log("channel: close failed")
	}
	w.Teardown()
}

// DataChannelSend sends data on the channel identified by connID and tag.
func (r *Registry) DataChannelSend(connID int32, tag string, data []byte) error {
	w, ok := r.Get(connID, tag)
	if !ok {
		return fmt.Errorf("%w: connection %d tag %q", ErrUnknownChannel, connID, tag)
	}
	return w.Send(data)
}

// DataChannelReceive drains the accumulation buffer of the channel identified
// by connID and tag. It returns nil if there is no data, or no such channel.
func (r *Registry) DataChannelReceive(connID int32, tag string) []byte {
	w, ok := r.Get(connID, tag)
	if !ok {
		return nil
	}
	return w.Drain()
}

// DataChannelClose closes the channel identified by connID and tag.
func (r *Registry) DataChannelClose(connID int32, tag string) error {
	w, ok := r.Get(connID, tag)
	if !ok {
		return fmt.Errorf("%w: connection %d tag %q", ErrUnknownChannel, connID, tag)
	}
	return w.Close()
}

func (x *registryObserver) next() Observer {
	x.r.mu.RLock()
	defer x.r.mu.RUnlock()
	return x.r.observer
}

func (x *registryObserver) StateChanged(w *Wrapper, state State) {
	if state == StateClosed {
		x.r.remove(x.key, w)
	}
	if next := x.next(); next != nil {
		next.StateChanged(w, state)
	}
}

func (x *registryObserver) MessageReceived(w *Wrapper, msg Message) {
	if next := x.next(); next != nil {
		next.MessageReceived(w, msg)
	}
}

func (x *registryObserver) DataBuffered(w *Wrapper, size int) {
	if next, ok := x.next().(BufferObserver); ok {
		next.DataBuffered(w, size)
	}
}
