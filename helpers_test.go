package rtcbridge

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/joeycumines/go-rtcbridge/managed"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 5 * time.Second
	testTick    = 5 * time.Millisecond
)

var errSendFailed = errors.New("send failed")

type (
	// recordingNative records every send, and serves pending bytes on
	// receive.
	recordingNative struct {
		sent    map[channel.Key][][]byte
		pending map[channel.Key][]byte
		sendErr error
		mu      sync.Mutex
	}

	voidNative struct {
		sent [][]byte
	}

	syncBuffer struct {
		b  bytes.Buffer
		mu sync.Mutex
	}
)

func newRecordingNative() *recordingNative {
	return &recordingNative{
		sent:    make(map[channel.Key][][]byte),
		pending: make(map[channel.Key][]byte),
	}
}

func (x *recordingNative) DataChannelSend(connID int32, tag string, data []byte) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	key := channel.Key{ConnID: connID, Tag: tag}
	x.sent[key] = append(x.sent[key], data)
	return x.sendErr
}

func (x *recordingNative) DataChannelReceive(connID int32, tag string) []byte {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.pending[channel.Key{ConnID: connID, Tag: tag}]
}

func (x *recordingNative) sends(connID int32, tag string) [][]byte {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.sent[channel.Key{ConnID: connID, Tag: tag}]
}

func (x *voidNative) DataChannelSend(connID int32, tag string, data []byte) {
	x.sent = append(x.sent, data)
}

func (x *voidNative) DataChannelReceive(connID int32, tag string) []byte {
	return nil
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.String()
}

func newTestLogger(w *syncBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}

func newTestVM(t testing.TB, opts ...managed.Option) *managed.VM {
	t.Helper()
	vm, err := managed.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close() })
	return vm
}

func newTestBridge(t testing.TB, vm *managed.VM, native any, opts ...Option) *Bridge {
	t.Helper()
	b, err := New(vm, native, append([]Option{WithSweepInterval(0)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// newInstalledRuntime returns a runtime with b installed.
func newInstalledRuntime(t testing.TB, b *Bridge) (*goja.Runtime, *Module) {
	t.Helper()
	rt := goja.New()
	m, err := b.Install(rt)
	require.NoError(t, err)
	return rt, m
}

func mustRun(t testing.TB, rt *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := rt.RunString(src)
	require.NoError(t, err)
	return v
}

// newLoopback registers both ends of an open pipe, as (1, tag) and (2, tag).
func newLoopback(t testing.TB, r *channel.Registry, tag string, opts ...channel.WrapperOption) (a, b *channel.PipeChannel) {
	t.Helper()
	a, b = channel.Pipe(0, tag)
	wa, err := r.Add(1, tag, a, opts...)
	require.NoError(t, err)
	wb, err := r.Add(2, tag, b, opts...)
	require.NoError(t, err)
	a.Bind(wa)
	b.Bind(wb)
	a.Open()
	return a, b
}

func newTestLoop(t testing.TB) *eventloop.Loop {
	t.Helper()
	loop, err := eventloop.New()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// onLoop runs fn on the loop, waiting for it to return.
func onLoop(t testing.TB, loop *eventloop.Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, loop.Submit(func() {
		defer close(done)
		fn()
	}))
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for the loop")
	}
}
