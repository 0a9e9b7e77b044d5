package channel

import (
	"sync"
)

type (
	stateEvent struct {
		wrapper *Wrapper
		state   State
	}

	recorder struct {
		states   []stateEvent
		messages []Message
		buffered []int
		mu       sync.Mutex
	}
)

var _ BufferObserver = (*recorder)(nil)

func (x *recorder) StateChanged(w *Wrapper, state State) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.states = append(x.states, stateEvent{w, state})
}

func (x *recorder) MessageReceived(w *Wrapper, msg Message) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.messages = append(x.messages, msg)
}

func (x *recorder) DataBuffered(w *Wrapper, size int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.buffered = append(x.buffered, size)
}

func (x *recorder) stateNames() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	names := make([]string, len(x.states))
	for i, e := range x.states {
		names[i] = e.wrapper.Tag() + ":" + e.state.String()
	}
	return names
}

func (x *recorder) counts() (states, messages, buffered int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.states), len(x.messages), len(x.buffered)
}

// newPipeWrappers binds a wrapper to each end of a new pipe.
func newPipeWrappers(opts ...WrapperOption) (a, b *PipeChannel, wa, wb *Wrapper) {
	a, b = Pipe(3, "label")
	wa = NewWrapper(1, "a", a, opts...)
	wb = NewWrapper(2, "b", b, opts...)
	a.Bind(wa)
	b.Bind(wb)
	return
}
