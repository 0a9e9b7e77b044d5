package envmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_releaseDetaches(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	tid := spawn(func() {
		g, err := m.Attach()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, CurrentThread(), g.Thread())
		assert.Equal(t, CurrentThread(), g.Env().tid)
		assert.True(t, rt.attached(CurrentThread()))

		g.Release()
		assert.False(t, rt.attached(CurrentThread()))
		g.Release()
	})

	assert.False(t, rt.attached(tid))
	attaches, detaches := rt.counts()
	assert.Equal(t, 1, attaches)
	assert.Equal(t, 1, detaches)
	assert.Equal(t, Stats{Attaches: 1, Detaches: 1}, m.Stats())
}

func TestGuard_nested(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	spawn(func() {
		outer, err := m.Attach()
		if !assert.NoError(t, err) {
			return
		}
		inner, err := m.Attach()
		if !assert.NoError(t, err) {
			return
		}
		assert.Same(t, outer.Env(), inner.Env())

		inner.Release()
		assert.True(t, rt.attached(CurrentThread()))
		outer.Release()
		assert.False(t, rt.attached(CurrentThread()))
	})

	attaches, _ := rt.counts()
	assert.Equal(t, 1, attaches)
}

func TestGuard_leavesPriorAttachmentToReaper(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	_, err := m.Env()
	require.NoError(t, err)

	g, err := m.Attach()
	require.NoError(t, err)
	g.Release()

	assert.True(t, rt.attached(CurrentThread()))
	assert.Equal(t, 1, m.Stats().Tracked)
}

func TestGuard_externallyAttached(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)
	_, err := rt.AttachThread(CurrentThread())
	require.NoError(t, err)

	g, err := m.Attach()
	require.NoError(t, err)
	g.Release()
	assert.True(t, rt.attached(CurrentThread()))
}

func TestGuard_foreignReleasePanics(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	g, err := m.Attach()
	require.NoError(t, err)

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		g.Release()
	}()
	assert.Equal(t, "envmgr: guard released from a foreign goroutine", <-done)

	g.Release()
	assert.False(t, rt.attached(CurrentThread()))
}

func TestGuard_attachFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.attachErr = errAttachRefused
	m := newTestManager(t, rt)

	g, err := m.Attach()
	assert.Nil(t, g)
	assert.ErrorIs(t, err, errAttachRefused)

	var nilGuard *Guard[*fakeEnv]
	assert.NotPanics(t, nilGuard.Release)
}

func TestManager_Go(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	var tid ThreadID
	err := <-m.Go(func(env *fakeEnv) {
		tid = CurrentThread()
		assert.Equal(t, tid, env.tid)
		assert.True(t, rt.attached(tid))

		again, err := m.Env()
		assert.NoError(t, err)
		assert.Same(t, env, again)
	})
	require.NoError(t, err)

	assert.NotEqual(t, CurrentThread(), tid)
	assert.False(t, rt.attached(tid))
	assert.Equal(t, Stats{Attaches: 1, Detaches: 1}, m.Stats())
}

func TestManager_Go_attachFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.attachErr = errAttachRefused
	m := newTestManager(t, rt)

	var called bool
	result := m.Go(func(*fakeEnv) { called = true })
	assert.ErrorIs(t, <-result, errAttachRefused)
	_, ok := <-result
	assert.False(t, ok)
	assert.False(t, called)
}

func TestManager_Go_simulatedThreadPool(t *testing.T) {
	rt := newFakeRuntime()
	m := newTestManager(t, rt)

	results := make([]<-chan error, 16)
	for i := range results {
		results[i] = m.Go(func(env *fakeEnv) {
			assert.True(t, rt.attached(env.tid))
		})
	}
	for _, result := range results {
		require.NoError(t, <-result)
	}

	attaches, detaches := rt.counts()
	assert.Equal(t, 16, attaches)
	assert.Equal(t, 16, detaches)
	assert.Zero(t, m.Stats().Tracked)
}
