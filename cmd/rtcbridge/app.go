package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/buffer"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-rtcbridge"
	"github.com/joeycumines/go-rtcbridge/channel"
	"github.com/joeycumines/go-rtcbridge/internal/config"
	"github.com/joeycumines/go-rtcbridge/managed"
	"github.com/joeycumines/go-rtcbridge/pionrtc"
	"github.com/joeycumines/logiface"
)

const (
	connOffer  int32 = 1
	connAnswer int32 = 2
)

type app struct {
	cfg      *config.Config
	logger   *logiface.Logger[logiface.Event]
	stdout   io.Writer
	vm       *managed.VM
	registry *channel.Registry
	bridge   *rtcbridge.Bridge
	loop     *eventloop.Loop
}

func newApp(cfg *config.Config, logger *logiface.Logger[logiface.Event], stdout io.Writer) (*app, error) {
	vm, err := managed.New(managed.WithMaxThreads(cfg.Bridge.MaxThreads))
	if err != nil {
		return nil, err
	}

	registry := channel.NewRegistry(channel.WithLogger(logger))

	bridge, err := rtcbridge.New(vm, registry,
		rtcbridge.WithLogger(logger),
		rtcbridge.WithGlobalName(cfg.Bridge.GlobalName),
		rtcbridge.WithMaxPayloadSize(cfg.Bridge.MaxPayloadBytes),
		rtcbridge.WithSweepInterval(cfg.Bridge.SweepInterval),
	)
	if err != nil {
		_ = vm.Close()
		return nil, err
	}

	loop, err := eventloop.New()
	if err != nil {
		_ = bridge.Close()
		_ = vm.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		vm:       vm,
		registry: registry,
		bridge:   bridge,
		loop:     loop,
	}, nil
}

func (a *app) close() error {
	return errors.Join(a.registry.Close(), a.bridge.Close(), a.vm.Close())
}

// run executes the script on the loop, connects the channels, then waits for
// the script to call exit.
func (a *app) run(ctx context.Context, name, source string) int {
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warning().Err(err).Log("rtcbridge: shutdown failed")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- a.loop.Run(ctx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	exited := make(chan int, 1)
	exit := func(code int) {
		select {
		case exited <- code:
		default:
		}
		cancel()
	}

	started := make(chan error, 1)
	if err := a.loop.Submit(func() { started <- a.start(name, source, exit) }); err != nil {
		a.logger.Err().Err(err).Log("rtcbridge: loop unavailable")
		return 1
	}
	select {
	case err := <-started:
		if err != nil {
			a.logger.Err().Str("script", name).Err(err).Log("rtcbridge: script failed")
			return 1
		}
	case <-ctx.Done():
		a.logger.Err().Err(ctx.Err()).Log("rtcbridge: script did not start")
		return 1
	}

	disconnect, err := a.connect(ctx)
	if err != nil {
		a.logger.Err().
			Str("transport", string(a.cfg.Channel.Transport)).
			Err(err).
			Log("rtcbridge: failed to connect")
		return 1
	}
	defer func() {
		if err := disconnect(); err != nil {
			a.logger.Warning().Err(err).Log("rtcbridge: disconnect failed")
		}
	}()

	select {
	case code := <-exited:
		return code
	case <-ctx.Done():
		select {
		case code := <-exited:
			return code
		default:
		}
		a.logger.Err().Err(ctx.Err()).Log("rtcbridge: script did not exit")
		return 1
	}
}

// start prepares a runtime and evaluates the script. It must be called on
// the loop.
func (a *app) start(name, source string, exit func(code int)) error {
	rt := goja.New()

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&printer{app: a}))
	registry.RegisterNativeModule("rnwebrtc", a.bridge.Require())
	registry.Enable(rt)
	console.Enable(rt)
	buffer.Enable(rt)

	module, err := a.bridge.Install(rt)
	if err != nil {
		return err
	}
	if err := rt.Set("exit", func(call goja.FunctionCall) goja.Value {
		exit(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	a.registry.SetObserver(module.Observer(a.loop))

	_, err = rt.RunScript(name, source)
	return err
}

// connect registers both ends of a channel pair, under the configured tag,
// returning a func that closes them.
func (a *app) connect(ctx context.Context) (func() error, error) {
	tag := a.cfg.Channel.Tag
	opts := []channel.WrapperOption{channel.WithRawDelivery(a.cfg.Channel.RawDelivery)}

	switch a.cfg.Channel.Transport {
	case config.TransportPion:
		ctx, cancel := context.WithTimeout(ctx, a.cfg.Channel.DialTimeout)
		defer cancel()
		link, err := pionrtc.Loopback{
			Registry:       a.registry,
			Logger:         a.logger,
			Tag:            tag,
			WrapperOptions: opts,
			Offerer:        connOffer,
			Answerer:       connAnswer,
		}.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return link.Close, nil

	case config.TransportPipe, "":
		local, remote := channel.Pipe(0, tag)
		wl, err := a.registry.Add(connOffer, tag, local, opts...)
		if err != nil {
			return nil, err
		}
		wr, err := a.registry.Add(connAnswer, tag, remote, opts...)
		if err != nil {
			a.registry.Remove(connOffer, tag)
			return nil, err
		}
		local.Bind(wl)
		remote.Bind(wr)
		local.Open()
		return local.Close, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", a.cfg.Channel.Transport)
	}
}

// printer implements console.Printer, writing logs to stdout, and warnings
// and errors to the logger.
type printer struct {
	app *app
}

func (x *printer) Log(s string) {
	_, _ = fmt.Fprintln(x.app.stdout, s)
}

func (x *printer) Warn(s string) {
	x.app.logger.Warning().Str("console", s).Log("rtcbridge: console.warn")
}

func (x *printer) Error(s string) {
	x.app.logger.Err().Str("console", s).Log("rtcbridge: console.error")
}
