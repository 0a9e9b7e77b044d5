package rtcbridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLoop struct{}

func (failingLoop) Submit(func()) error { return errors.New("loop stopped") }

// scriptHarness is a runtime owned by an event loop, with the bridge
// installed and events delivered from the registry.
type scriptHarness struct {
	loop     *eventloop.Loop
	rt       *goja.Runtime
	module   *Module
	registry *channel.Registry
}

func newScriptHarness(t *testing.T, setup string, opts ...Option) *scriptHarness {
	t.Helper()
	registry := channel.NewRegistry()
	b := newTestBridge(t, newTestVM(t), registry, opts...)
	h := &scriptHarness{loop: newTestLoop(t), registry: registry}
	onLoop(t, h.loop, func() {
		h.rt = goja.New()
		var err error
		h.module, err = b.Install(h.rt)
		if assert.NoError(t, err) {
			_, err = h.rt.RunString(setup)
			assert.NoError(t, err)
		}
	})
	require.NotNil(t, h.module)
	registry.SetObserver(h.module.Observer(h.loop))
	return h
}

// exported returns the global array name, which must contain only strings.
func (h *scriptHarness) exported(t *testing.T, name string) (values []string) {
	t.Helper()
	onLoop(t, h.loop, func() {
		for _, v := range h.rt.Get(name).Export().([]any) {
			values = append(values, v.(string))
		}
	})
	return values
}

func (h *scriptHarness) eventually(t *testing.T, name string, n int) []string {
	t.Helper()
	var values []string
	require.Eventually(t, func() bool {
		values = h.exported(t, name)
		return len(values) >= n
	}, testTimeout, testTick)
	return values
}

func TestScriptObserver_stateChanged(t *testing.T) {
	h := newScriptHarness(t, `
		var events = [];
		RNWebRTC.addListener("dataChannelStateChanged", e => {
			events.push(e.peerConnectionId + ":" + e.reactTag + ":" + e.id + ":" + e.state);
		});
	`)

	a, _ := newLoopback(t, h.registry, "chat")
	assert.Equal(t, []string{"1:chat:0:open", "2:chat:0:open"}, h.eventually(t, "events", 2))

	require.NoError(t, a.Close())
	assert.ElementsMatch(t, []string{
		"1:chat:0:open", "2:chat:0:open",
		"1:chat:0:closing", "2:chat:0:closing",
		"1:chat:0:closed", "2:chat:0:closed",
	}, h.eventually(t, "events", 6))
	assert.Zero(t, h.registry.Len())
}

func TestScriptObserver_rawMessages(t *testing.T) {
	h := newScriptHarness(t, `
		var messages = [];
		RNWebRTC.addListener("dataChannelReceiveMessage", e => {
			const data = e.type === "binary" ? (e.data instanceof Uint8Array) + ":" + Array.from(e.data).join(",") : e.data;
			messages.push(e.peerConnectionId + ":" + e.reactTag + ":" + e.type + ":" + data);
		});
	`)

	_, b := newLoopback(t, h.registry, "chat", channel.WithRawDelivery(true))
	require.NoError(t, b.Send([]byte{0x68, 0x69}))
	require.NoError(t, b.SendText("hi"))
	require.NoError(t, b.Send(nil))

	assert.Equal(t, []string{
		"1:chat:binary:true:104,105",
		"1:chat:text:hi",
		"1:chat:binary:true:",
	}, h.eventually(t, "messages", 3))

	w, ok := h.registry.Get(1, "chat")
	require.True(t, ok)
	assert.Zero(t, w.Buffered())
}

func TestScriptObserver_textWithBufferedDelivery(t *testing.T) {
	h := newScriptHarness(t, `
		var events = [];
		RNWebRTC.addListener("dataChannelReceiveMessage", e => {
			events.push("message:" + e.peerConnectionId + ":" + e.type + ":" + e.data);
		});
		RNWebRTC.addListener("dataChannelReceiveRawMessage", e => {
			const data = RNWebRTC.dataChannelReceive(e.peerConnectionId, e.reactTag);
			events.push("buffered:" + e.peerConnectionId + ":" + Array.from(data).join(","));
		});
	`)

	a, _ := newLoopback(t, h.registry, "chat")
	require.NoError(t, a.SendText("hello"))
	require.NoError(t, a.Send([]byte{1, 2}))

	assert.Equal(t, []string{
		"message:2:text:hello",
		"buffered:2:1,2",
	}, h.eventually(t, "events", 2))
}

func TestScriptObserver_pullOnBuffered(t *testing.T) {
	h := newScriptHarness(t, `
		var received = [];
		RNWebRTC.addListener("dataChannelReceiveRawMessage", e => {
			const data = RNWebRTC.dataChannelReceive(e.peerConnectionId, e.reactTag);
			received.push(e.bufferedAmount + ":" + Array.from(data).join(","));
		});
	`)

	a, _ := newLoopback(t, h.registry, "chat")
	require.NoError(t, a.Send([]byte{0x68, 0x69}))
	assert.Equal(t, []string{"2:104,105"}, h.eventually(t, "received", 1))

	require.NoError(t, a.Send([]byte{1, 2, 3}))
	assert.Equal(t, []string{"2:104,105", "3:1,2,3"}, h.eventually(t, "received", 2))

	w, ok := h.registry.Get(2, "chat")
	require.True(t, ok)
	assert.Zero(t, w.Buffered())
}

func TestScriptObserver_removeListener(t *testing.T) {
	h := newScriptHarness(t, `
		var events = [];
		var removed = [];
		var subscription = RNWebRTC.addListener("dataChannelStateChanged", e => removed.push(e.state));
		RNWebRTC.addListener("dataChannelStateChanged", e => events.push(e.state));
		subscription.remove();
		subscription.remove();
	`)
	onLoop(t, h.loop, func() {
		assert.Equal(t, 1, h.module.ListenerCount(EventStateChanged))
	})

	newLoopback(t, h.registry, "chat")
	assert.Equal(t, []string{"open", "open"}, h.eventually(t, "events", 2))
	assert.Empty(t, h.exported(t, "removed"))
}

func TestScriptObserver_listenerFailure(t *testing.T) {
	var logs syncBuffer
	h := newScriptHarness(t, `
		var events = [];
		RNWebRTC.addListener("dataChannelStateChanged", () => { throw new Error("listener boom"); });
		RNWebRTC.addListener("dataChannelStateChanged", e => events.push(e.state));
	`, WithLogger(newTestLogger(&logs)))

	newLoopback(t, h.registry, "chat")
	assert.Equal(t, []string{"open", "open"}, h.eventually(t, "events", 2))
	assert.Equal(t, 2, strings.Count(logs.String(), `"msg":"rtcbridge: listener failed"`))
	assert.Contains(t, logs.String(), "listener boom")
}

func TestScriptObserver_eventDropped(t *testing.T) {
	var logs syncBuffer
	registry := channel.NewRegistry()
	b := newTestBridge(t, newTestVM(t), registry, WithLogger(newTestLogger(&logs)))
	_, m := newInstalledRuntime(t, b)
	registry.SetObserver(m.Observer(failingLoop{}))

	a, _ := newLoopback(t, registry, "chat")
	require.NoError(t, a.Send([]byte{1}))

	out := logs.String()
	assert.Equal(t, 3, strings.Count(out, `"msg":"rtcbridge: event dropped"`))
	assert.Contains(t, out, `"event":"dataChannelReceiveRawMessage"`)
	assert.Contains(t, out, `"err":"loop stopped"`)
}

func TestModule_ObserverNilLoopPanics(t *testing.T) {
	b := newTestBridge(t, newTestVM(t), &voidNative{})
	_, m := newInstalledRuntime(t, b)
	assert.PanicsWithValue(t, "rtcbridge: loop must not be nil", func() {
		m.Observer(nil)
	})
}
