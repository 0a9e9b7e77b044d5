package channel

import (
	"sync"
	"sync/atomic"
)

type (
	// PipeChannel is one end of an in-memory data channel, see [Pipe].
	PipeChannel struct {
		shared  *pipeShared
		peer    *PipeChannel
		wrapper atomic.Pointer[Wrapper]
	}

	pipeShared struct {
		label string
		id    int
		mu    sync.Mutex
		state State
	}
)

var _ DataChannel = (*PipeChannel)(nil)

// Pipe returns both ends of an in-memory data channel, initially connecting.
// Events are delivered synchronously, on the goroutine that caused them, to
// the wrapper bound to each end.
func Pipe(id int, label string) (*PipeChannel, *PipeChannel) {
	shared := &pipeShared{id: id, label: label}
	a := &PipeChannel{shared: shared}
	b := &PipeChannel{shared: shared, peer: a}
	a.peer = b
	return a, b
}

// Bind routes this end's events to w.
func (p *PipeChannel) Bind(w *Wrapper) {
	p.wrapper.Store(w)
}

// ID returns the id passed to Pipe.
func (p *PipeChannel) ID() int {
	return p.shared.id
}

// Label returns the label passed to Pipe.
func (p *PipeChannel) Label() string {
	return p.shared.label
}

// ReadyState returns the state shared by both ends.
func (p *PipeChannel) ReadyState() State {
	p.shared.mu.Lock()
	defer p.shared.mu.Unlock()
	return p.shared.state
}

// Open transitions both ends to StateOpen.
func (p *PipeChannel) Open() {
	p.transition(StateOpen)
}

// Send delivers a copy of data to the peer, as a binary message.
func (p *PipeChannel) Send(data []byte) error {
	return p.send(Message{Data: clone(data), Binary: true})
}

// SendText delivers s to the peer, as a text message.
func (p *PipeChannel) SendText(s string) error {
	return p.send(Message{Data: []byte(s)})
}

func (p *PipeChannel) send(msg Message) error {
	if p.ReadyState() != StateOpen {
		return ErrNotOpen
	}
	if w := p.peer.wrapper.Load(); w != nil {
		w.HandleMessage(msg)
	}
	return nil
}

// Close transitions both ends through StateClosing to StateClosed.
func (p *PipeChannel) Close() error {
	if s := p.ReadyState(); s == StateClosing || s == StateClosed {
		return nil
	}
	p.transition(StateClosing)
	p.transition(StateClosed)
	return nil
}

func (p *PipeChannel) transition(state State) {
	p.shared.mu.Lock()
	if p.shared.state == state || p.shared.state == StateClosed {
		p.shared.mu.Unlock()
		return
	}
	p.shared.state = state
	p.shared.mu.Unlock()

	for _, end := range [...]*PipeChannel{p, p.peer} {
		if w := end.wrapper.Load(); w != nil {
			w.HandleStateChange()
		}
	}
}
