package channel

import (
	"errors"
	"strconv"
)

// State mirrors the ready state of the underlying data channel.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

var (
	// ErrClosed is returned when using a torn down Wrapper or closed Registry.
	ErrClosed = errors.New("channel: closed")
	// ErrNotOpen is returned by Pipe channels when sending outside StateOpen.
	ErrNotOpen = errors.New("channel: not open")
	// ErrUnknownChannel is returned for a connection id and tag with no
	// registered wrapper.
	ErrUnknownChannel = errors.New("channel: unknown channel")
	// ErrDuplicateChannel is returned when registering a connection id and
	// tag twice.
	ErrDuplicateChannel = errors.New("channel: duplicate channel")
)

// String returns the lowercase state name, as exposed to scripts.
func (x State) String() string {
	switch x {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "State(" + strconv.Itoa(int(x)) + ")"
	}
}

type (
	// Message is one inbound message.
	Message struct {
		Data   []byte
		Binary bool
	}

	// DataChannel is the transport a Wrapper observes.
	DataChannel interface {
		// ID returns the channel id, or -1 if not (yet) known.
		ID() int
		Label() string
		ReadyState() State
		Send(data []byte) error
		Close() error
	}
)
