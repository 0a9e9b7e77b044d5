package envmgr

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-rtcbridge/internal/goid"
	"github.com/joeycumines/logiface"
)

type (
	// ThreadID identifies a goroutine, as seen by the managed runtime.
	ThreadID uint64

	// Runtime models a managed runtime that threads must attach to before
	// use. E is the per-thread environment handle.
	Runtime[E any] interface {
		// GetEnv returns the environment of an attached thread.
		GetEnv(tid ThreadID) (E, bool)
		// AttachThread attaches tid, returning the existing environment if
		// it is already attached.
		AttachThread(tid ThreadID) (E, error)
		// DetachThread detaches tid, invalidating its environment.
		DetachThread(tid ThreadID) error
	}

	// Manager hands out environments for the calling goroutine, see the
	// package documentation.
	Manager[E any] struct {
		rt      Runtime[E]
		logger  *logiface.Logger[logiface.Event]
		threads map[ThreadID]*thread
		stop    chan struct{}
		done    chan struct{}

		interval time.Duration
		attaches atomic.Uint64
		detaches atomic.Uint64

		reaper sync.Once
		mu     sync.Mutex
		closed bool
	}

	// Stats is a point-in-time view of a [Manager].
	Stats struct {
		// Attaches is the number of attachments performed by the Manager.
		Attaches uint64
		// Detaches is the number of detachments performed by the Manager.
		Detaches uint64
		// Tracked is the number of goroutines currently pending detach.
		Tracked int
	}

	thread struct {
		osTID  int
		guards int
		// scoped is set when a Guard performed the attach
		scoped bool
	}
)

// CurrentThread returns the ThreadID of the calling goroutine.
func CurrentThread() ThreadID {
	return ThreadID(goid.Current())
}

// New constructs a Manager for rt. It panics if rt is nil.
func New[E any](rt Runtime[E], opts ...Option) (*Manager[E], error) {
	if rt == nil {
		panic("envmgr: runtime must not be nil")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Manager[E]{
		rt:       rt,
		logger:   cfg.logger,
		interval: cfg.sweepInterval,
		threads:  make(map[ThreadID]*thread),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Env returns the environment of the calling goroutine, attaching it if
// necessary. A goroutine attached by Env is detached automatically, some time
// after it exits. Failure is always an [*AttachError].
func (m *Manager[E]) Env() (E, error) {
	return m.env(CurrentThread())
}

func (m *Manager[E]) env(tid ThreadID) (E, error) {
	var zero E

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return zero, &AttachError{Thread: tid, Cause: ErrClosed}
	}

	if env, ok := m.rt.GetEnv(tid); ok {
		return env, nil
	}

	env, err := m.rt.AttachThread(tid)
	if err != nil {
		m.logger.Err().
			Uint64("thread", uint64(tid)).
			Err(err).
			Log("envmgr: attach failed")
		return zero, &AttachError{Thread: tid, Cause: err}
	}
	m.attaches.Add(1)

	if err := m.deferDetach(tid); err != nil {
		_ = m.detach(tid, osThreadID())
		return zero, &AttachError{Thread: tid, Cause: err}
	}

	m.logger.Debug().
		Uint64("thread", uint64(tid)).
		Log("envmgr: attached thread")

	return env, nil
}

// deferDetach registers tid with the reaper, starting it on first use.
func (m *Manager[E]) deferDetach(tid ThreadID) error {
	m.reaper.Do(m.startReaper)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.threads[tid]; !ok {
		m.threads[tid] = &thread{osTID: osThreadID()}
	}
	return nil
}

func (m *Manager[E]) startReaper() {
	if m.interval <= 0 {
		close(m.done)
		return
	}
	go m.runReaper()
}

func (m *Manager[E]) runReaper() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep detaches every tracked goroutine that has exited, returning the
// number detached. It lists goroutines only if any are tracked, and that
// listing stops the world, see [WithSweepInterval].
func (m *Manager[E]) Sweep() int {
	type deadThread struct {
		tid   ThreadID
		osTID int
	}
	var dead []deadThread

	m.mu.Lock()
	if len(m.threads) != 0 {
		// snapshot under the lock, so every tracked thread predates it
		live := goid.Live()
		for tid, th := range m.threads {
			if _, ok := live[uint64(tid)]; !ok {
				dead = append(dead, deadThread{tid, th.osTID})
				delete(m.threads, tid)
			}
		}
	}
	m.mu.Unlock()

	for _, d := range dead {
		_ = m.detach(d.tid, d.osTID)
	}
	return len(dead)
}

func (m *Manager[E]) detach(tid ThreadID, osTID int) error {
	if err := m.rt.DetachThread(tid); err != nil {
		m.logger.Warning().
			Uint64("thread", uint64(tid)).
			Err(err).
			Log("envmgr: detach failed")
		return err
	}
	m.detaches.Add(1)
	m.logger.Debug().
		Uint64("thread", uint64(tid)).
		Int("os_thread", osTID).
		Log("envmgr: detached thread")
	return nil
}

// Go runs fn on a new goroutine, locked to its OS thread and attached for the
// duration of fn. The returned channel receives the attach error, or nil once
// fn has returned and the goroutine has been detached, then is closed.
func (m *Manager[E]) Go(fn func(env E)) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		guard, err := m.Attach()
		if err != nil {
			result <- err
			return
		}
		func() {
			defer guard.Release()
			fn(guard.Env())
		}()
		result <- nil
	}()
	return result
}

// Stats returns the current counters.
func (m *Manager[E]) Stats() Stats {
	m.mu.Lock()
	tracked := len(m.threads)
	m.mu.Unlock()
	return Stats{
		Attaches: m.attaches.Load(),
		Detaches: m.detaches.Load(),
		Tracked:  tracked,
	}
}

// Close stops the reaper and detaches every tracked goroutine. Subsequent
// calls to Env and Attach fail with ErrClosed. Close is idempotent.
func (m *Manager[E]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	threads := m.threads
	m.threads = make(map[ThreadID]*thread)
	m.mu.Unlock()

	close(m.stop)
	m.reaper.Do(func() { close(m.done) })
	<-m.done

	var errs []error
	for tid, th := range threads {
		if err := m.detach(tid, th.osTID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
