package rtcbridge

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/joeycumines/go-rtcbridge/envmgr"
	"github.com/joeycumines/go-rtcbridge/managed"
	"github.com/joeycumines/logiface"
)

// Bridge is the context shared by every runtime the native methods are
// installed into, see the package documentation.
type Bridge struct {
	native         *nativeMethods
	envs           *envmgr.Manager[*managed.Env]
	logger         *logiface.Logger[logiface.Event]
	limiter        *catrate.Limiter
	modules        map[*goja.Runtime]*Module
	globalName     string
	maxPayloadSize int
	mu             sync.Mutex
	closed         bool
}

// New resolves the native methods of native, failing with an
// [*UnresolvedMethodError] if it does not implement them, and returns a
// Bridge attaching callers to vm. It panics if vm is nil.
//
// See [Option] for configuration, and [Bridge.Close] for teardown.
func New(vm envmgr.Runtime[*managed.Env], native any, opts ...Option) (*Bridge, error) {
	if vm == nil {
		panic("rtcbridge: vm must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("rtcbridge: %w", err)
	}

	methods, err := resolveNative(native)
	if err != nil {
		return nil, err
	}

	envs, err := envmgr.New(vm,
		envmgr.WithLogger(cfg.logger),
		envmgr.WithSweepInterval(cfg.sweepInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("rtcbridge: %w", err)
	}

	b := &Bridge{
		native:         methods,
		envs:           envs,
		logger:         cfg.logger,
		modules:        make(map[*goja.Runtime]*Module),
		globalName:     cfg.globalName,
		maxPayloadSize: cfg.maxPayloadSize,
	}
	if cfg.sendErrorRates != nil {
		b.limiter = catrate.NewLimiter(cfg.sendErrorRates)
	}

	b.logger.Info().
		Str("global", b.globalName).
		Bool("close_supported", methods.close != nil).
		Log("rtcbridge: native methods resolved")

	return b, nil
}

// Environments returns the manager attaching callers to the managed runtime.
func (b *Bridge) Environments() *envmgr.Manager[*managed.Env] {
	return b.envs
}

// Install defines the global object in runtime, returning the installed
// Module. It fails with ErrAlreadyInstalled if called twice for the same
// runtime. It panics if runtime is nil.
func (b *Bridge) Install(runtime *goja.Runtime) (*Module, error) {
	if runtime == nil {
		panic("rtcbridge: runtime must not be nil")
	}

	m, err := b.module(runtime, true)
	if err != nil {
		return nil, err
	}

	obj := runtime.NewObject()
	m.setupExports(obj)
	if err := runtime.Set(b.globalName, obj); err != nil {
		return nil, fmt.Errorf("rtcbridge: %w", err)
	}

	b.logger.Debug().
		Str("global", b.globalName).
		Log("rtcbridge: installed")

	return m, nil
}

// Require returns a [require.ModuleLoader] exporting the same functions as
// the installed global object. It shares the Module (and so its listeners)
// with Install, for the same runtime.
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("rnwebrtc", bridge.Require())
//	registry.Enable(runtime)
func (b *Bridge) Require() require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		m, err := b.module(runtime, false)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		exports := module.Get("exports").(*goja.Object)
		m.setupExports(exports)
	}
}

// Module returns the Module of runtime, if any.
func (b *Bridge) Module(runtime *goja.Runtime) (*Module, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[runtime]
	return m, ok
}

func (b *Bridge) module(runtime *goja.Runtime, install bool) (*Module, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	m, ok := b.modules[runtime]
	if !ok {
		m = newModule(b, runtime)
		b.modules[runtime] = m
	}
	if install {
		if m.installed {
			return nil, ErrAlreadyInstalled
		}
		m.installed = true
	}
	return m, nil
}

// Close detaches every goroutine attached on behalf of the Bridge. Calls
// made after Close throw. Close is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.modules = make(map[*goja.Runtime]*Module)
	b.mu.Unlock()

	err := b.envs.Close()
	b.logger.Info().
		Uint64("attaches", b.envs.Stats().Attaches).
		Log("rtcbridge: closed")
	return err
}

func (b *Bridge) logSendError(connID int32, tag string, err error) {
	if _, ok := b.limiter.Allow(channel.Key{ConnID: connID, Tag: tag}); !ok {
		return
	}
	b.logger.Warning().
		Int64("peer_connection_id", int64(connID)).
		Str("tag", tag).
		Err(err).
		Log("rtcbridge: native send failed")
}
