package rtcbridge

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/joeycumines/go-rtcbridge/envmgr"
	"github.com/joeycumines/logiface"
)

// DefaultGlobalName is the name of the installed global object.
const DefaultGlobalName = "RNWebRTC"

// bridgeOptions holds configuration for a [Bridge].
type bridgeOptions struct {
	logger         *logiface.Logger[logiface.Event]
	sendErrorRates map[time.Duration]int
	globalName     string
	sweepInterval  time.Duration
	maxPayloadSize int
}

// Option configures a [Bridge].
type Option interface {
	applyOption(*bridgeOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*bridgeOptions) error
}

func (o *optionFunc) applyOption(opts *bridgeOptions) error {
	return o.fn(opts)
}

// WithLogger configures the logger. A nil logger (the default) disables
// logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithGlobalName overrides [DefaultGlobalName].
func WithGlobalName(name string) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if name == "" {
			return errors.New("global name must not be empty")
		}
		opts.globalName = name
		return nil
	}}
}

// WithMaxPayloadSize limits the size of sent payloads, zero meaning
// unlimited (the default). Oversized payloads fail with ErrPayloadTooLarge.
func WithMaxPayloadSize(n int) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if n < 0 {
			return errors.New("max payload size must not be negative")
		}
		opts.maxPayloadSize = n
		return nil
	}}
}

// WithSweepInterval configures how often goroutines that exited are detached
// from the managed runtime, see [envmgr.WithSweepInterval]. Each sweep stops
// the world to list goroutines, for as long as any goroutine is attached.
func WithSweepInterval(d time.Duration) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if d < 0 {
			return errors.New("sweep interval must not be negative")
		}
		opts.sweepInterval = d
		return nil
	}}
}

// WithSendErrorLogRates configures per channel rate limits, for logging
// native send errors, as accepted by catrate.NewLimiter. An empty or nil map
// disables rate limiting. Every duration and count must be positive, counts
// must increase with the duration, and the average rate must decrease.
func WithSendErrorLogRates(rates map[time.Duration]int) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if len(rates) == 0 {
			opts.sendErrorRates = nil
			return nil
		}
		if err := validateRates(rates); err != nil {
			return err
		}
		opts.sendErrorRates = maps.Clone(rates)
		return nil
	}}
}

// validateRates applies the rules of catrate.NewLimiter, which panics on
// invalid rates.
func validateRates(rates map[time.Duration]int) error {
	durations := slices.Sorted(maps.Keys(rates))
	for i, d := range durations {
		count := rates[d]
		if d <= 0 || count <= 0 {
			return fmt.Errorf("invalid send error log rate %d per %s: must be positive", count, d)
		}
		if i == 0 {
			continue
		}
		prev := durations[i-1]
		if count <= rates[prev] {
			return fmt.Errorf("invalid send error log rates: %d per %s must exceed %d per %s", count, d, rates[prev], prev)
		}
		if float64(count)/float64(d) >= float64(rates[prev])/float64(prev) {
			return fmt.Errorf("invalid send error log rates: %d per %s must be slower than %d per %s", count, d, rates[prev], prev)
		}
	}
	return nil
}

func resolveOptions(opts []Option) (*bridgeOptions, error) {
	cfg := &bridgeOptions{
		globalName:    DefaultGlobalName,
		sweepInterval: envmgr.DefaultSweepInterval,
		sendErrorRates: map[time.Duration]int{
			time.Second: 5,
			time.Minute: 60,
		},
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
