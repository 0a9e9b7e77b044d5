package envmgr

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// DefaultSweepInterval is how often the reaper looks for exited goroutines.
const DefaultSweepInterval = time.Second

type managerOptions struct {
	logger        *logiface.Logger[logiface.Event]
	sweepInterval time.Duration
}

// Option configures a [Manager].
type Option interface {
	applyOption(*managerOptions) error
}

type optionFunc func(*managerOptions) error

func (f optionFunc) applyOption(opts *managerOptions) error {
	return f(opts)
}

// WithLogger sets the logger used to report attach and detach activity.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(opts *managerOptions) error {
		opts.logger = logger
		return nil
	})
}

// WithSweepInterval sets the reaper period. Zero disables the background
// reaper, leaving [Manager.Sweep] and [Manager.Close] as the only way tracked
// goroutines are detached.
//
// While any goroutine is tracked, each sweep captures the stacks of every
// goroutine (runtime.Stack with all set), which stops the world for the
// duration of the dump. A long lived tracked goroutine, such as an event loop,
// keeps that cost recurring for the life of the process, so the interval
// should be chosen with the goroutine count in mind.
func WithSweepInterval(d time.Duration) Option {
	return optionFunc(func(opts *managerOptions) error {
		if d < 0 {
			return errors.New("envmgr: sweep interval must not be negative")
		}
		opts.sweepInterval = d
		return nil
	})
}

func resolveOptions(opts []Option) (*managerOptions, error) {
	cfg := &managerOptions{
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
