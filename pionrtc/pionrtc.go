package pionrtc

import (
	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/pion/webrtc/v4"
)

// Channel implements [channel.DataChannel] for a [webrtc.DataChannel].
type Channel struct {
	dc *webrtc.DataChannel
}

var _ channel.DataChannel = (*Channel)(nil)

// NewChannel wraps dc. It panics if dc is nil.
func NewChannel(dc *webrtc.DataChannel) *Channel {
	if dc == nil {
		panic("pionrtc: data channel must not be nil")
	}
	return &Channel{dc: dc}
}

// DataChannel returns the underlying channel.
func (x *Channel) DataChannel() *webrtc.DataChannel {
	return x.dc
}

// ID returns the SCTP stream id, or -1 until it has been assigned.
func (x *Channel) ID() int {
	if id := x.dc.ID(); id != nil {
		return int(*id)
	}
	return -1
}

func (x *Channel) Label() string {
	return x.dc.Label()
}

func (x *Channel) ReadyState() channel.State {
	return State(x.dc.ReadyState())
}

func (x *Channel) Send(data []byte) error {
	return x.dc.Send(data)
}

func (x *Channel) Close() error {
	return x.dc.Close()
}

// State converts a pion ready state. Unknown states are reported as
// connecting.
func State(s webrtc.DataChannelState) channel.State {
	switch s {
	case webrtc.DataChannelStateOpen:
		return channel.StateOpen
	case webrtc.DataChannelStateClosing:
		return channel.StateClosing
	case webrtc.DataChannelStateClosed:
		return channel.StateClosed
	default:
		return channel.StateConnecting
	}
}

// Register adds dc to reg as connID and tag, and routes its open, close and
// message callbacks to the returned wrapper. It replaces any such callbacks
// already set on dc.
func Register(reg *channel.Registry, connID int32, tag string, dc *webrtc.DataChannel, opts ...channel.WrapperOption) (*channel.Wrapper, error) {
	return register(reg, connID, tag, dc, nil, opts)
}

func register(reg *channel.Registry, connID int32, tag string, dc *webrtc.DataChannel, onOpen func(), opts []channel.WrapperOption) (*channel.Wrapper, error) {
	w, err := reg.Add(connID, tag, NewChannel(dc), opts...)
	if err != nil {
		return nil, err
	}
	dc.OnOpen(func() {
		w.HandleStateChange()
		if onOpen != nil {
			onOpen()
		}
	})
	dc.OnClose(w.HandleStateChange)
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		w.HandleMessage(channel.Message{Data: msg.Data, Binary: !msg.IsString})
	})
	return w, nil
}
