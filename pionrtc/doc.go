// Package pionrtc adapts github.com/pion/webrtc data channels to the channel
// package, so that real WebRTC connections can be bridged to scripts.
//
// [Register] is the entry point: it wraps a [webrtc.DataChannel], adds it
// to a [channel.Registry], and routes the channel's callbacks to the
// resulting [channel.Wrapper]. [Loopback] negotiates two in-process peer
// connections over the loopback interface, which is mainly useful for demos
// and tests.
package pionrtc
