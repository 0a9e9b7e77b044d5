package managed

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-rtcbridge/envmgr"
)

type (
	// VM is an attachable runtime, see the package documentation.
	VM struct {
		envs       map[envmgr.ThreadID]*Env
		maxThreads int
		attaches   atomic.Uint64
		detaches   atomic.Uint64
		mu         sync.RWMutex
		closed     bool
	}

	// Env is the per-thread environment handle of a [VM].
	Env struct {
		vm       *VM
		tid      envmgr.ThreadID
		calls    atomic.Uint64
		detached atomic.Bool
	}

	// VMStats is a point-in-time view of a [VM].
	VMStats struct {
		Attaches uint64
		Detaches uint64
		Attached int
	}
)

var _ envmgr.Runtime[*Env] = (*VM)(nil)

// New constructs a VM.
func New(opts ...Option) (*VM, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &VM{
		envs:       make(map[envmgr.ThreadID]*Env),
		maxThreads: cfg.maxThreads,
	}, nil
}

// GetEnv implements [envmgr.Runtime].
func (x *VM) GetEnv(tid envmgr.ThreadID) (*Env, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	env, ok := x.envs[tid]
	return env, ok
}

// AttachThread implements [envmgr.Runtime]. Attaching an attached thread
// returns its existing Env.
func (x *VM) AttachThread(tid envmgr.ThreadID) (*Env, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil, ErrVMClosed
	}
	if env, ok := x.envs[tid]; ok {
		return env, nil
	}
	if x.maxThreads > 0 && len(x.envs) >= x.maxThreads {
		return nil, ErrThreadLimit
	}
	env := &Env{vm: x, tid: tid}
	x.envs[tid] = env
	x.attaches.Add(1)
	return env, nil
}

// DetachThread implements [envmgr.Runtime].
func (x *VM) DetachThread(tid envmgr.ThreadID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	env, ok := x.envs[tid]
	if !ok {
		return ErrNotAttached
	}
	delete(x.envs, tid)
	env.detached.Store(true)
	x.detaches.Add(1)
	return nil
}

// AttachedThreads returns the number of currently attached threads.
func (x *VM) AttachedThreads() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.envs)
}

// Stats returns the current counters.
func (x *VM) Stats() VMStats {
	return VMStats{
		Attaches: x.attaches.Load(),
		Detaches: x.detaches.Load(),
		Attached: x.AttachedThreads(),
	}
}

// Close invalidates every Env and refuses further attachment. It is
// idempotent.
func (x *VM) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	for tid, env := range x.envs {
		env.detached.Store(true)
		delete(x.envs, tid)
		x.detaches.Add(1)
	}
	return nil
}

// Thread returns the thread the Env was attached for.
func (x *Env) Thread() envmgr.ThreadID {
	return x.tid
}

// Calls returns the number of method invocations bound through the Env.
func (x *Env) Calls() uint64 {
	return x.calls.Load()
}

// Check returns nil if the Env may be used by the calling goroutine.
func (x *Env) Check() error {
	if x == nil || x.detached.Load() {
		return ErrStaleEnv
	}
	if envmgr.CurrentThread() != x.tid {
		return ErrWrongThread
	}
	return nil
}
