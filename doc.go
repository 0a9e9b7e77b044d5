// Package rtcbridge installs the RNWebRTC host object into a [goja.Runtime],
// bridging scripts to native data channel send and receive operations.
//
// # Overview
//
// A [Bridge] is the explicitly constructed context shared by every runtime it
// is installed into. It is built from a managed runtime (typically a
// [managed.VM]) and a native object, whose methods are resolved once, by name
// and exact signature:
//
//	DataChannelSend(connID int32, tag string, data []byte) [error]
//	DataChannelReceive(connID int32, tag string) []byte
//	DataChannelClose(connID int32, tag string) error   // optional
//	RTCBridgeVersion() int                             // optional
//
// [channel.Registry] implements all of them. Construction fails with an
// [*UnresolvedMethodError] if the native object does not match.
//
// [Bridge.Install] defines a global object (RNWebRTC by default) with:
//
//   - dataChannelSend(connectionId, tag, payload) -> true
//   - dataChannelReceive(connectionId, tag) -> Uint8Array
//   - dataChannelClose(connectionId, tag), only if the native object supports it
//   - addListener(event, fn) -> {remove()}
//
// Each call attaches the calling goroutine to the managed runtime, via an
// [envmgr.Manager], before invoking the native method. Payloads are copied
// exactly in both directions (see [ToNativeBytes] and [ToScriptBuffer]); a
// payload may be an ArrayBuffer or any ArrayBufferView, including a Node.js
// Buffer. Receiving when there is no data yields an empty Uint8Array.
//
// Native send errors are not surfaced to scripts. They are logged, rate
// limited per channel. Every other failure is thrown: a TypeError for
// arguments of the wrong type, otherwise a GoError wrapping an
// [*envmgr.AttachError] or [*MarshalingError].
//
// Channel events reach scripts through [Module.Observer], which delivers on
// an event loop, as the events dataChannelStateChanged,
// dataChannelReceiveMessage (text, or binary with raw delivery) and
// dataChannelReceiveRawMessage (binary data buffered, pull it with
// dataChannelReceive).
//
// # Thread Safety
//
// A Bridge may be shared by any number of runtimes, each used from its own
// goroutine. A [Module] must only be used from its runtime's goroutine, except
// for its Observer, whose methods may be called from any goroutine.
//
// # Usage
//
//	vm, _ := managed.New()
//	registry := channel.NewRegistry()
//	bridge, err := rtcbridge.New(vm, registry)
//	if err != nil {
//		return err
//	}
//	defer bridge.Close()
//
//	module, err := bridge.Install(runtime)
//	if err != nil {
//		return err
//	}
//	registry.SetObserver(module.Observer(loop))
package rtcbridge
