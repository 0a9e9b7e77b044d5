// Command rtcbridge runs a script against the native data channel bridge,
// over a loopback pair of channels, (1, tag) and (2, tag).
//
// Configuration is read from RTCBRIDGE_* environment variables (see
// internal/config), then overridden by flags. Without -script, a built-in
// demo echoes a message across the pair. The script ends the process by
// calling exit(code).
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/go-rtcbridge/internal/config"
	"github.com/joeycumines/stumpy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = io.WriteString(stderr, err.Error()+"\n")
		return 2
	}

	fs := flag.NewFlagSet("rtcbridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	script := fs.String("script", "", "script `file` to run, defaults to a built-in echo demo")
	timeout := fs.Duration("timeout", 30*time.Second, "fail if the script has not called exit within this duration")
	fs.TextVar((*levelFlag)(&cfg.Logging.Level), "log-level", levelFlag(cfg.Logging.Level), "log level")
	fs.Func("transport", "data channel transport, pipe or pion", func(s string) error {
		return cfg.Channel.Transport.Decode(s)
	})
	fs.BoolVar(&cfg.Channel.RawDelivery, "raw", cfg.Channel.RawDelivery, "deliver each message as it arrives, instead of buffering")
	fs.StringVar(&cfg.Channel.Tag, "tag", cfg.Channel.Tag, "tag of both channels")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(stderr)),
		stumpy.L.WithLevel(cfg.Logging.Level.Level()),
	).Logger()

	source := demoScript
	name := "demo.js"
	if *script != "" {
		b, err := os.ReadFile(*script)
		if err != nil {
			logger.Err().Err(err).Log("rtcbridge: failed to read script")
			return 1
		}
		source, name = string(b), *script
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := newApp(cfg, logger, stdout)
	if err != nil {
		logger.Err().Err(err).Log("rtcbridge: failed to start")
		return 1
	}
	return a.run(ctx, name, source)
}

// levelFlag adapts config.LogLevel to encoding.TextMarshaler and
// encoding.TextUnmarshaler, for flag.TextVar.
type levelFlag config.LogLevel

func (x levelFlag) MarshalText() ([]byte, error) {
	return []byte(config.LogLevel(x).Level().String()), nil
}

func (x *levelFlag) UnmarshalText(b []byte) error {
	return (*config.LogLevel)(x).Decode(string(b))
}
