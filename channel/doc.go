// Package channel implements the native, per data channel side of the bridge.
//
// # Overview
//
// A [Wrapper] sits between one [DataChannel] and whoever manages its lifecycle.
// It relays state transitions, and either forwards each inbound binary
// message immediately (raw delivery) or appends it to an accumulation buffer,
// which is drained on demand (see [Wrapper.Drain]). Drainers decide what
// counts as a complete message. Text messages are always forwarded.
//
// Observers are referenced weakly, through a [Subscription]: a Wrapper never
// keeps its observer alive, and notifications to a closed or collected
// subscription are dropped. Once the channel reports [StateClosed] the
// Wrapper notifies one last time, then releases its buffer and channel.
//
// A [Registry] keys wrappers by connection id and tag, and is the native
// object bridged to scripts: it exposes DataChannelSend and
// DataChannelReceive.
//
// # Thread Safety
//
// Channel implementations are expected to dispatch events for a given channel
// sequentially. Wrapper and Registry methods are nevertheless safe for
// concurrent use, since draining happens on the caller's goroutine.
package channel
