package pionrtc

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/joeycumines/logiface"
	"github.com/pion/webrtc/v4"
)

// Loopback configures a pair of in-process peer connections, see
// [Loopback.Dial].
type Loopback struct {
	// Registry receives both ends of the data channel. Required.
	Registry *channel.Registry
	// Logger is optional.
	Logger *logiface.Logger[logiface.Event]
	// Tag identifies both ends within the Registry, and is the channel label.
	Tag string
	// WrapperOptions are passed to [Register], for both ends.
	WrapperOptions []channel.WrapperOption
	// Offerer and Answerer are the connection ids of each end.
	Offerer  int32
	Answerer int32
}

// Link is a connected pair of peer connections, see [Loopback.Dial].
type Link struct {
	pcs [2]*webrtc.PeerConnection
}

// Dial negotiates a data channel between two new peer connections, over
// loopback host candidates, returning once both ends are open and
// registered. The Link must be closed.
func (x Loopback) Dial(ctx context.Context) (*Link, error) {
	if x.Registry == nil {
		return nil, errors.New("pionrtc: registry must not be nil")
	}

	var se webrtc.SettingEngine
	se.SetIncludeLoopbackCandidate(true)
	se.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	var link Link
	for i := range link.pcs {
		pc, err := api.NewPeerConnection(webrtc.Configuration{})
		if err != nil {
			_ = link.Close()
			return nil, fmt.Errorf("pionrtc: %w", err)
		}
		link.pcs[i] = pc
		role := [...]string{"offerer", "answerer"}[i]
		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			x.Logger.Debug().
				Str("role", role).
				Str("state", state.String()).
				Log("pionrtc: connection state changed")
		})
	}

	if err := x.dial(ctx, link.pcs[0], link.pcs[1]); err != nil {
		_ = link.Close()
		x.Registry.Remove(x.Offerer, x.Tag)
		x.Registry.Remove(x.Answerer, x.Tag)
		return nil, err
	}

	x.Logger.Info().
		Str("tag", x.Tag).
		Int64("offerer", int64(x.Offerer)).
		Int64("answerer", int64(x.Answerer)).
		Log("pionrtc: loopback connected")

	return &link, nil
}

func (x Loopback) dial(ctx context.Context, offerer, answerer *webrtc.PeerConnection) error {
	opened := make(chan struct{}, 2)
	onOpen := func() {
		select {
		case opened <- struct{}{}:
		default:
		}
	}
	failed := make(chan error, 1)

	answerer.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != x.Tag {
			return
		}
		if _, err := register(x.Registry, x.Answerer, x.Tag, dc, onOpen, x.WrapperOptions); err != nil {
			select {
			case failed <- err:
			default:
			}
		}
	})

	dc, err := offerer.CreateDataChannel(x.Tag, nil)
	if err != nil {
		return fmt.Errorf("pionrtc: %w", err)
	}
	if _, err := register(x.Registry, x.Offerer, x.Tag, dc, onOpen, x.WrapperOptions); err != nil {
		return err
	}

	if err := signal(ctx, offerer, answerer); err != nil {
		return err
	}

	for range 2 {
		select {
		case <-opened:
		case err := <-failed:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// signal exchanges a complete offer and answer, without trickle ICE.
func signal(ctx context.Context, offerer, answerer *webrtc.PeerConnection) error {
	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("pionrtc: create offer: %w", err)
	}
	if err := setLocal(ctx, offerer, offer); err != nil {
		return err
	}
	if err := answerer.SetRemoteDescription(*offerer.LocalDescription()); err != nil {
		return fmt.Errorf("pionrtc: set offer: %w", err)
	}

	answer, err := answerer.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("pionrtc: create answer: %w", err)
	}
	if err := setLocal(ctx, answerer, answer); err != nil {
		return err
	}
	if err := offerer.SetRemoteDescription(*answerer.LocalDescription()); err != nil {
		return fmt.Errorf("pionrtc: set answer: %w", err)
	}
	return nil
}

func setLocal(ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("pionrtc: set local description: %w", err)
	}
	select {
	case <-gathered:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes both peer connections, which closes the data channel.
func (x *Link) Close() error {
	var errs []error
	for _, pc := range x.pcs {
		if pc != nil {
			errs = append(errs, pc.Close())
		}
	}
	return errors.Join(errs...)
}
