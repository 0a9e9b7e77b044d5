package envmgr

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 5 * time.Second
	testTick    = 5 * time.Millisecond
)

var errAttachRefused = errors.New("attach refused")

type (
	fakeEnv struct {
		tid ThreadID
	}

	// fakeRuntime is a minimal Runtime, recording every transition.
	fakeRuntime struct {
		envs      map[ThreadID]*fakeEnv
		attachErr error
		attaches  int
		detaches  int
		mu        sync.Mutex
	}

	syncBuffer struct {
		b  bytes.Buffer
		mu sync.Mutex
	}
)

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{envs: make(map[ThreadID]*fakeEnv)}
}

func (x *fakeRuntime) GetEnv(tid ThreadID) (*fakeEnv, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	env, ok := x.envs[tid]
	return env, ok
}

func (x *fakeRuntime) AttachThread(tid ThreadID) (*fakeEnv, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.attachErr != nil {
		return nil, x.attachErr
	}
	if env, ok := x.envs[tid]; ok {
		return env, nil
	}
	env := &fakeEnv{tid: tid}
	x.envs[tid] = env
	x.attaches++
	return env, nil
}

func (x *fakeRuntime) DetachThread(tid ThreadID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.envs[tid]; !ok {
		return errors.New("not attached")
	}
	delete(x.envs, tid)
	x.detaches++
	return nil
}

func (x *fakeRuntime) attached(tid ThreadID) bool {
	_, ok := x.GetEnv(tid)
	return ok
}

func (x *fakeRuntime) counts() (attaches, detaches int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.attaches, x.detaches
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

func newTestManager(t *testing.T, rt *fakeRuntime, opts ...Option) *Manager[*fakeEnv] {
	t.Helper()
	m, err := New[*fakeEnv](rt, append([]Option{WithSweepInterval(0)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// spawn runs fn on a goroutine that exits once fn returns, reporting its
// ThreadID.
func spawn(fn func()) ThreadID {
	ch := make(chan ThreadID)
	go func() {
		defer func() { ch <- CurrentThread() }()
		fn()
	}()
	return <-ch
}
