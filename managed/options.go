package managed

import (
	"errors"
)

type vmOptions struct {
	maxThreads int
}

// Option configures a [VM].
type Option interface {
	applyOption(*vmOptions) error
}

type optionFunc func(*vmOptions) error

func (f optionFunc) applyOption(opts *vmOptions) error {
	return f(opts)
}

// WithMaxThreads limits the number of simultaneously attached threads. Zero
// (the default) means unlimited.
func WithMaxThreads(n int) Option {
	return optionFunc(func(opts *vmOptions) error {
		if n < 0 {
			return errors.New("managed: max threads must not be negative")
		}
		opts.maxThreads = n
		return nil
	})
}

func resolveOptions(opts []Option) (*vmOptions, error) {
	cfg := &vmOptions{}
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
