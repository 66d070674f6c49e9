package dispatcher

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// DefaultYieldLimit is the exclusive upper bound of the number of extra
// scheduling points injected by [Dispatcher.SimulateRandomDelay].
const DefaultYieldLimit = 10

// dispatcherOptions holds configuration options for Dispatcher creation.
type dispatcherOptions struct {
	logger         *logiface.Logger[logiface.Event]
	yieldLimit     int
	parkingAllowed bool
}

// Option configures a Dispatcher, see New.
type Option interface {
	applyDispatcher(*dispatcherOptions) error
}

type optionImpl struct {
	applyDispatcherFunc func(*dispatcherOptions) error
}

func (x *optionImpl) applyDispatcher(opts *dispatcherOptions) error {
	return x.applyDispatcherFunc(opts)
}

// WithLogger configures structured logging of scheduling decisions.
// Each step is logged at trace level, clock advances and clones at debug.
// A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithParkingAllowed sets the initial value of [Dispatcher.ParkingAllowed].
// Defaults to false.
func WithParkingAllowed(allowed bool) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.parkingAllowed = allowed
		return nil
	}}
}

// WithYieldLimit sets the exclusive upper bound for the count drawn by
// [Dispatcher.SimulateRandomDelay]. Must be at least 1, where 1 disables
// the injected yields. Defaults to [DefaultYieldLimit].
func WithYieldLimit(limit int) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		if limit < 1 {
			return fmt.Errorf(`yield limit must be >= 1, got %d`, limit)
		}
		opts.yieldLimit = limit
		return nil
	}}
}

func resolveOptions(opts []Option) (*dispatcherOptions, error) {
	cfg := &dispatcherOptions{
		yieldLimit: DefaultYieldLimit,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDispatcher(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
